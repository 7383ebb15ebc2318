package database

import (
	"context"
	"fmt"
	"strings"

	"club-space-backend/pkg/models"
)

const profileColumns = `id, COALESCE(email, ''), COALESCE(username, ''), COALESCE(display_name, ''),
	COALESCE(avatar_url, ''), COALESCE(bio, ''), created_at, updated_at`

func scanProfile(sc interface{ Scan(...interface{}) error }) (*models.Profile, error) {
	var p models.Profile
	if err := sc.Scan(&p.ID, &p.Email, &p.Username, &p.DisplayName, &p.AvatarURL, &p.Bio, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *SQLDatabase) listProfiles(ctx context.Context, q queryer, query string, args ...interface{}) ([]models.Profile, error) {
	rows, err := d.query(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpsertProfile 创建或更新用户资料（登录回调时调用）
func (d *SQLDatabase) UpsertProfile(ctx context.Context, p *models.Profile) error {
	_, err := d.exec(ctx, d.db, `
		INSERT INTO profiles (id, email, username, display_name, avatar_url, bio, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			display_name = CASE WHEN excluded.display_name <> '' THEN excluded.display_name ELSE profiles.display_name END,
			avatar_url = CASE WHEN excluded.avatar_url <> '' THEN excluded.avatar_url ELSE profiles.avatar_url END,
			updated_at = excluded.updated_at`,
		p.ID, p.Email, p.Username, p.DisplayName, p.AvatarURL, p.Bio, p.CreatedAt, p.UpdatedAt)
	return classify("upsert profile", err)
}

// GetProfile 根据ID获取用户资料
func (d *SQLDatabase) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	p, err := scanProfile(d.queryRow(ctx, d.db, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SearchProfilesByName 按显示名模糊搜索（不区分大小写）
func (d *SQLDatabase) SearchProfilesByName(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	out, err := d.listProfiles(ctx, d.db, `SELECT `+profileColumns+` FROM profiles
		WHERE LOWER(COALESCE(display_name, '')) LIKE ? ESCAPE '\'
		ORDER BY display_name LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	return out, nil
}

// FindProfilesByEmailPrefix 邮箱 @ 前部分完全匹配
func (d *SQLDatabase) FindProfilesByEmailPrefix(ctx context.Context, prefix string, limit int) ([]models.Profile, error) {
	pattern := escapeLike(strings.ToLower(prefix)) + "@%"
	out, err := d.listProfiles(ctx, d.db, `SELECT `+profileColumns+` FROM profiles
		WHERE LOWER(COALESCE(email, '')) LIKE ? ESCAPE '\'
		ORDER BY email LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("find profiles by email: %w", err)
	}
	return out, nil
}

// GetProfileStats 用户主页：资料 + 关注/粉丝/动态计数
func (d *SQLDatabase) GetProfileStats(ctx context.Context, profileID, viewerID string) (*models.ProfileStats, error) {
	p, err := d.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	stats := &models.ProfileStats{Profile: *p}
	var following int
	err = d.queryRow(ctx, d.db, `SELECT
		(SELECT COUNT(*) FROM follows WHERE following_id = ?),
		(SELECT COUNT(*) FROM follows WHERE follower_id = ?),
		(SELECT COUNT(*) FROM posts WHERE author_id = ?),
		(SELECT COUNT(*) FROM follows WHERE follower_id = ? AND following_id = ?)`,
		profileID, profileID, profileID, viewerID, profileID,
	).Scan(&stats.FollowerCount, &stats.FollowingCount, &stats.PostCount, &following)
	if err != nil {
		return nil, fmt.Errorf("profile stats: %w", err)
	}
	stats.IsFollowing = following > 0
	return stats, nil
}
