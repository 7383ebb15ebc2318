package services

import (
	"context"

	"club-space-backend/pkg/database"
	"club-space-backend/pkg/models"
)

// CreatePostRequest 发布动态
type CreatePostRequest struct {
	Content  string `json:"content" validate:"required,max=2000"`
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// CreateCommentRequest 发表评论
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// SendMessageRequest 发送私信
type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Content    string `json:"content" validate:"required,max=2000"`
}

// SocialService 用户资料、搜索、动态、点赞、评论、关注与私信
type SocialService struct {
	base
	db database.DatabaseInterface
}

// NewSocialService 创建社交服务
func NewSocialService(db database.DatabaseInterface) *SocialService {
	return &SocialService{base: newBase(), db: db}
}

// EnsureProfile 登录时创建或更新资料
func (s *SocialService) EnsureProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	now := s.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if err := s.db.UpsertProfile(ctx, p); err != nil {
		return nil, err
	}
	return s.db.GetProfile(ctx, p.ID)
}

// GetProfile 用户主页
func (s *SocialService) GetProfile(ctx context.Context, profileID, viewerID string) (*models.ProfileStats, error) {
	return s.db.GetProfileStats(ctx, profileID, viewerID)
}

// SearchUsers 显示名包含匹配优先，没有结果时按邮箱前缀精确匹配；空查询返回空列表
func (s *SocialService) SearchUsers(ctx context.Context, query string) ([]models.UserSearchResult, error) {
	query = clean(query)
	out := []models.UserSearchResult{}
	if query == "" {
		return out, nil
	}
	profiles, err := lookupProfiles(ctx, s.db, query, searchLimit)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out = append(out, models.UserSearchResult{
			ID:          p.ID,
			Name:        p.Name(),
			Email:       p.Email,
			EmailPrefix: p.EmailPrefix(),
		})
	}
	return out, nil
}

// Follow 关注；重复关注不报错
func (s *SocialService) Follow(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return ErrSelfFollow
	}
	if _, err := s.db.GetProfile(ctx, targetID); err != nil {
		return err
	}
	return s.db.Follow(ctx, userID, targetID)
}

// Unfollow 取消关注
func (s *SocialService) Unfollow(ctx context.Context, userID, targetID string) error {
	return s.db.Unfollow(ctx, userID, targetID)
}

// CreatePost 发布动态
func (s *SocialService) CreatePost(ctx context.Context, userID string, req CreatePostRequest) (*models.Post, error) {
	content := clean(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	p := &models.Post{
		ID:        s.newID(),
		AuthorID:  userID,
		Content:   content,
		ImageURL:  clean(req.ImageURL),
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.CreatePost(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Feed 最新动态；followingOnly 时只看关注的人和自己
func (s *SocialService) Feed(ctx context.Context, viewerID string, followingOnly bool) ([]models.PostWithDetails, error) {
	return s.db.ListFeed(ctx, models.FeedQuery{ViewerID: viewerID, FollowingOnly: followingOnly, Limit: feedLimit})
}

// Like 点赞；重复点赞不报错
func (s *SocialService) Like(ctx context.Context, userID, postID string) error {
	if _, err := s.db.GetPost(ctx, postID); err != nil {
		return err
	}
	return s.db.LikePost(ctx, postID, userID)
}

// Unlike 取消点赞
func (s *SocialService) Unlike(ctx context.Context, userID, postID string) error {
	return s.db.UnlikePost(ctx, postID, userID)
}

// Comments 评论按时间升序
func (s *SocialService) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := s.db.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.db.ListComments(ctx, postID)
}

// AddComment 发表评论
func (s *SocialService) AddComment(ctx context.Context, userID, postID string, req CreateCommentRequest) (*models.Comment, error) {
	content := clean(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if _, err := s.db.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	c := &models.Comment{
		ID:        s.newID(),
		PostID:    postID,
		AuthorID:  userID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SendMessage 发送私信
func (s *SocialService) SendMessage(ctx context.Context, userID string, req SendMessageRequest) (*models.Message, error) {
	content := clean(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if req.ReceiverID == userID {
		return nil, ErrSelfMessage
	}
	if _, err := s.db.GetProfile(ctx, req.ReceiverID); err != nil {
		return nil, err
	}
	m := &models.Message{
		ID:         s.newID(),
		SenderID:   userID,
		ReceiverID: req.ReceiverID,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.db.SendMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Messages 当前用户的私信，withUserID 非空时只看与该用户的对话；最新的在前
func (s *SocialService) Messages(ctx context.Context, userID, withUserID string) ([]models.Message, error) {
	return s.db.ListMessages(ctx, userID, withUserID, messageLimit)
}

// MarkRead 只有接收者可以标记已读
func (s *SocialService) MarkRead(ctx context.Context, userID, messageID string) error {
	return s.db.MarkMessageRead(ctx, messageID, userID)
}
