// Package services 组合领域规则与数据访问，供 HTTP 处理器调用
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"club-space-backend/pkg/database"
	"club-space-backend/pkg/models"

	"github.com/google/uuid"
)

var (
	ErrEmptyContent     = errors.New("content is required")
	ErrEmptyGroupName   = errors.New("group name is required")
	ErrSelfFollow       = errors.New("cannot follow yourself")
	ErrSelfMessage      = errors.New("cannot send a message to yourself")
	ErrInviteeNotFound  = errors.New("no user matches invitee")
	ErrAmbiguousInvitee = errors.New("more than one user matches invitee")

	ErrEmptyMeetingTitle  = errors.New("meeting title is required")
	ErrInvalidMeetingTime = errors.New("meeting time must be HH:MM")
)

const (
	feedLimit    = 20
	messageLimit = 50
	searchLimit  = 10
)

// base 各服务共用的时间与ID来源，测试中可替换
type base struct {
	now   func() time.Time
	newID func() string
}

func newBase() base {
	return base{now: time.Now, newID: uuid.NewString}
}

func clean(s string) string {
	return strings.TrimSpace(s)
}

// emailPrefix "minji@example.com" -> "minji"，没有 @ 时原样返回
func emailPrefix(query string) string {
	if i := strings.Index(query, "@"); i >= 0 {
		return query[:i]
	}
	return query
}

// lookupProfiles 显示名包含匹配优先，没有结果时按邮箱前缀精确匹配
func lookupProfiles(ctx context.Context, db database.DatabaseInterface, query string, limit int) ([]models.Profile, error) {
	profiles, err := db.SearchProfilesByName(ctx, query, limit)
	if err != nil || len(profiles) > 0 {
		return profiles, err
	}
	prefix := emailPrefix(query)
	if prefix == "" {
		return nil, nil
	}
	return db.FindProfilesByEmailPrefix(ctx, prefix, limit)
}
