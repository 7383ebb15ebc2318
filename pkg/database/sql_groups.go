package database

import (
	"context"
	"database/sql"
	"fmt"

	"club-space-backend/pkg/models"
)

// CreateGroup 创建小组，创建者自动加入
func (d *SQLDatabase) CreateGroup(ctx context.Context, g *models.CommunityGroup, creator *models.GroupMembership) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := d.exec(ctx, tx, `INSERT INTO community_groups (id, name, description, creator_id, created_at)
			VALUES (?, ?, ?, ?, ?)`, g.ID, g.Name, g.Description, g.CreatorID, g.CreatedAt); err != nil {
			return classify("create group", err)
		}
		if creator == nil {
			return nil
		}
		_, err := d.exec(ctx, tx, `INSERT INTO group_memberships (id, group_id, user_id, joined_at) VALUES (?, ?, ?, ?)`,
			creator.ID, creator.GroupID, creator.UserID, creator.JoinedAt)
		return classify("add group creator", err)
	})
}

const groupSummarySelect = `SELECT g.id, g.name, COALESCE(g.description, ''), g.creator_id, g.created_at,
		(SELECT COUNT(*) FROM group_memberships m WHERE m.group_id = g.id),
		(SELECT COUNT(*) FROM group_memberships m WHERE m.group_id = g.id AND m.user_id = ?)
	FROM community_groups g`

func scanGroupSummary(sc interface{ Scan(...interface{}) error }) (*models.GroupSummary, error) {
	var s models.GroupSummary
	var mine int
	if err := sc.Scan(&s.ID, &s.Name, &s.Description, &s.CreatorID, &s.CreatedAt, &s.MemberCount, &mine); err != nil {
		return nil, err
	}
	s.IsMember = mine > 0
	return &s, nil
}

// ListGroups 小组列表（含成员数与当前用户是否已加入）
func (d *SQLDatabase) ListGroups(ctx context.Context, viewerID string) ([]models.GroupSummary, error) {
	rows, err := d.query(ctx, d.db, groupSummarySelect+` ORDER BY g.created_at DESC`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	out := []models.GroupSummary{}
	for rows.Next() {
		s, err := scanGroupSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetGroup 小组详情与成员
func (d *SQLDatabase) GetGroup(ctx context.Context, id, viewerID string) (*models.GroupDetail, error) {
	s, err := scanGroupSummary(d.queryRow(ctx, d.db, groupSummarySelect+` WHERE g.id = ?`, viewerID, id))
	if isNoRows(err) {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}

	members, err := d.listProfiles(ctx, d.db, `SELECT p.id, COALESCE(p.email, ''), COALESCE(p.username, ''),
			COALESCE(p.display_name, ''), COALESCE(p.avatar_url, ''), COALESCE(p.bio, ''), p.created_at, p.updated_at
		FROM group_memberships m JOIN profiles p ON p.id = m.user_id
		WHERE m.group_id = ? ORDER BY m.joined_at`, id)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	if members == nil {
		members = []models.Profile{}
	}
	return &models.GroupDetail{GroupSummary: *s, Members: members}, nil
}

// JoinGroup 加入小组；重复加入由唯一约束拒绝并返回 ErrAlreadyMember
func (d *SQLDatabase) JoinGroup(ctx context.Context, m *models.GroupMembership) error {
	_, err := d.exec(ctx, d.db, `INSERT INTO group_memberships (id, group_id, user_id, joined_at) VALUES (?, ?, ?, ?)`,
		m.ID, m.GroupID, m.UserID, m.JoinedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyMember
	}
	return classify("join group", err)
}

// LeaveGroup 退出小组
func (d *SQLDatabase) LeaveGroup(ctx context.Context, groupID, userID string) error {
	res, err := d.exec(ctx, d.db, `DELETE FROM group_memberships WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("leave group: %w", err)
	}
	return affectedOne(res, fmt.Errorf("membership: %w", ErrNotFound))
}
