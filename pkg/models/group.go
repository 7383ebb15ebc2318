package models

import "time"

// CommunityGroup 社区小组
type CommunityGroup struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatorID   string    `json:"creator_id" db:"creator_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// GroupMembership 小组成员关系，(group_id, user_id) 唯一
type GroupMembership struct {
	ID        string    `json:"id" db:"id"`
	GroupID   string    `json:"group_id" db:"group_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`
}

// GroupSummary 列表页展示的小组
type GroupSummary struct {
	CommunityGroup
	MemberCount int  `json:"member_count"`
	IsMember    bool `json:"is_member"`
}

// GroupDetail 小组详情
type GroupDetail struct {
	GroupSummary
	Members []Profile `json:"members"`
}
