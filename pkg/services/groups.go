package services

import (
	"context"

	"club-space-backend/pkg/database"
	"club-space-backend/pkg/logger"
	"club-space-backend/pkg/models"
)

// CreateGroupRequest 创建社区小组请求
type CreateGroupRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=1000"`
}

// GroupService 社区小组：加入即插入，退出即删除，没有容量与审批
type GroupService struct {
	base
	db database.DatabaseInterface
}

// NewGroupService 创建小组服务
func NewGroupService(db database.DatabaseInterface) *GroupService {
	return &GroupService{base: newBase(), db: db}
}

// Create 创建小组，创建者自动加入
func (s *GroupService) Create(ctx context.Context, userID string, req CreateGroupRequest) (*models.CommunityGroup, error) {
	name := clean(req.Name)
	if name == "" {
		return nil, ErrEmptyGroupName
	}
	now := s.now().UTC()
	g := &models.CommunityGroup{
		ID:          s.newID(),
		Name:        name,
		Description: clean(req.Description),
		CreatorID:   userID,
		CreatedAt:   now,
	}
	creator := &models.GroupMembership{ID: s.newID(), GroupID: g.ID, UserID: userID, JoinedAt: now}
	if err := s.db.CreateGroup(ctx, g, creator); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).WithField("group_id", g.ID).Info("🏕️ Group created")
	return g, nil
}

// List 小组列表，带成员数与当前用户是否已加入
func (s *GroupService) List(ctx context.Context, viewerID string) ([]models.GroupSummary, error) {
	return s.db.ListGroups(ctx, viewerID)
}

// Get 小组详情与成员
func (s *GroupService) Get(ctx context.Context, groupID, viewerID string) (*models.GroupDetail, error) {
	return s.db.GetGroup(ctx, groupID, viewerID)
}

// Join 重复加入返回 database.ErrAlreadyMember
func (s *GroupService) Join(ctx context.Context, userID, groupID string) (*models.GroupMembership, error) {
	if _, err := s.db.GetGroup(ctx, groupID, userID); err != nil {
		return nil, err
	}
	m := &models.GroupMembership{ID: s.newID(), GroupID: groupID, UserID: userID, JoinedAt: s.now().UTC()}
	if err := s.db.JoinGroup(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Leave 不是成员时返回 database.ErrNotFound
func (s *GroupService) Leave(ctx context.Context, userID, groupID string) error {
	return s.db.LeaveGroup(ctx, groupID, userID)
}
