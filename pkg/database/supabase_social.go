package database

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"club-space-backend/pkg/models"

	"github.com/sirupsen/logrus"
)

// ================= Groups =================

// CreateGroup 创建小组并加入创建者；成员写入失败时删除小组
func (db *SupabaseDatabase) CreateGroup(ctx context.Context, g *models.CommunityGroup, creator *models.GroupMembership) error {
	if _, err := db.makeRequest(ctx, http.MethodPost, "/community_groups", g); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	if creator == nil {
		return nil
	}
	if _, err := db.makeRequest(ctx, http.MethodPost, "/group_memberships", creator); err != nil {
		if _, delErr := db.mutateRows(ctx, http.MethodDelete, "community_groups", url.Values{"id": {eq(g.ID)}}, nil); delErr != nil {
			logrus.WithError(delErr).WithField("group_id", g.ID).Error("❌ Failed to roll back group creation")
		}
		return fmt.Errorf("add group creator: %w", err)
	}
	return nil
}

type groupRow struct {
	models.CommunityGroup
	GroupMemberships []struct {
		UserID   string          `json:"user_id"`
		Profiles *models.Profile `json:"profiles"`
	} `json:"group_memberships"`
}

func (r groupRow) summary(viewerID string) models.GroupSummary {
	s := models.GroupSummary{CommunityGroup: r.CommunityGroup, MemberCount: len(r.GroupMemberships)}
	for _, m := range r.GroupMemberships {
		if m.UserID == viewerID {
			s.IsMember = true
		}
	}
	return s
}

// ListGroups 小组列表
func (db *SupabaseDatabase) ListGroups(ctx context.Context, viewerID string) ([]models.GroupSummary, error) {
	var rows []groupRow
	q := url.Values{"select": {"*,group_memberships(user_id)"}, "order": {"created_at.desc"}}
	if err := db.getRows(ctx, "community_groups", q, &rows); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	out := make([]models.GroupSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.summary(viewerID))
	}
	return out, nil
}

// GetGroup 小组详情
func (db *SupabaseDatabase) GetGroup(ctx context.Context, id, viewerID string) (*models.GroupDetail, error) {
	var rows []groupRow
	q := url.Values{"id": {eq(id)}, "select": {"*,group_memberships(user_id,joined_at,profiles(*))"}}
	if err := db.getRows(ctx, "community_groups", q, &rows); err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	detail := &models.GroupDetail{GroupSummary: rows[0].summary(viewerID), Members: []models.Profile{}}
	for _, m := range rows[0].GroupMemberships {
		if m.Profiles != nil {
			detail.Members = append(detail.Members, *m.Profiles)
		}
	}
	return detail, nil
}

// JoinGroup 加入小组；唯一约束冲突返回 ErrAlreadyMember
func (db *SupabaseDatabase) JoinGroup(ctx context.Context, m *models.GroupMembership) error {
	if _, err := db.makeRequest(ctx, http.MethodPost, "/group_memberships", m); err != nil {
		if isAPIConflict(err) {
			return ErrAlreadyMember
		}
		return fmt.Errorf("join group: %w", err)
	}
	return nil
}

// LeaveGroup 退出小组
func (db *SupabaseDatabase) LeaveGroup(ctx context.Context, groupID, userID string) error {
	n, err := db.mutateRows(ctx, http.MethodDelete, "group_memberships", url.Values{"group_id": {eq(groupID)}, "user_id": {eq(userID)}}, nil)
	if err != nil {
		return fmt.Errorf("leave group: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("membership: %w", ErrNotFound)
	}
	return nil
}

// ================= Posts / Likes / Comments / Follows =================

// CreatePost 发布动态
func (db *SupabaseDatabase) CreatePost(ctx context.Context, p *models.Post) error {
	if _, err := db.makeRequest(ctx, http.MethodPost, "/posts", p); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// GetPost 获取动态
func (db *SupabaseDatabase) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var rows []models.Post
	if err := db.getRows(ctx, "posts", url.Values{"id": {eq(id)}, "select": {"*"}}, &rows); err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return &rows[0], nil
}

type authorRef struct {
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatar_url"`
}

func (a *authorRef) name() string {
	if a == nil {
		return ""
	}
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

// ListFeed 动态流
func (db *SupabaseDatabase) ListFeed(ctx context.Context, fq models.FeedQuery) ([]models.PostWithDetails, error) {
	q := url.Values{
		"select": {"*,author:profiles!posts_author_id_fkey(display_name,username,avatar_url),likes(user_id),comments(count)"},
		"order":  {"created_at.desc"},
		"limit":  {strconv.Itoa(fq.Limit)},
	}
	if fq.FollowingOnly {
		var follows []struct {
			FollowingID string `json:"following_id"`
		}
		if err := db.getRows(ctx, "follows", url.Values{"follower_id": {eq(fq.ViewerID)}, "select": {"following_id"}}, &follows); err != nil {
			return nil, fmt.Errorf("list follows: %w", err)
		}
		authors := []string{fq.ViewerID}
		for _, f := range follows {
			authors = append(authors, f.FollowingID)
		}
		q.Set("author_id", inList(authors))
	}

	var rows []struct {
		models.Post
		Author *authorRef `json:"author"`
		Likes  []struct {
			UserID string `json:"user_id"`
		} `json:"likes"`
		Comments []struct {
			Count int `json:"count"`
		} `json:"comments"`
	}
	if err := db.getRows(ctx, "posts", q, &rows); err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}

	out := make([]models.PostWithDetails, 0, len(rows))
	for _, r := range rows {
		p := models.PostWithDetails{Post: r.Post, AuthorName: r.Author.name(), LikeCount: len(r.Likes)}
		if r.Author != nil {
			p.AuthorAvatar = r.Author.AvatarURL
		}
		if len(r.Comments) > 0 {
			p.CommentCount = r.Comments[0].Count
		}
		for _, l := range r.Likes {
			if l.UserID == fq.ViewerID {
				p.Liked = true
			}
		}
		out = append(out, p)
	}
	return out, nil
}

var ignoreDuplicates = map[string]string{"Prefer": "resolution=ignore-duplicates,return=minimal"}

// LikePost 点赞（重复点赞视为成功）
func (db *SupabaseDatabase) LikePost(ctx context.Context, postID, userID string) error {
	_, _, err := db.makeRequestWithHeaders(ctx, http.MethodPost, "/likes?on_conflict=post_id,user_id",
		map[string]string{"post_id": postID, "user_id": userID}, ignoreDuplicates)
	if err != nil {
		return fmt.Errorf("like post: %w", err)
	}
	return nil
}

// UnlikePost 取消点赞
func (db *SupabaseDatabase) UnlikePost(ctx context.Context, postID, userID string) error {
	if _, err := db.mutateRows(ctx, http.MethodDelete, "likes", url.Values{"post_id": {eq(postID)}, "user_id": {eq(userID)}}, nil); err != nil {
		return fmt.Errorf("unlike post: %w", err)
	}
	return nil
}

// CreateComment 发表评论
func (db *SupabaseDatabase) CreateComment(ctx context.Context, c *models.Comment) error {
	payload := map[string]interface{}{
		"id":         c.ID,
		"post_id":    c.PostID,
		"author_id":  c.AuthorID,
		"content":    c.Content,
		"created_at": c.CreatedAt,
	}
	if _, err := db.makeRequest(ctx, http.MethodPost, "/comments", payload); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListComments 评论按时间升序
func (db *SupabaseDatabase) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var rows []struct {
		models.Comment
		Author *authorRef `json:"author"`
	}
	q := url.Values{
		"post_id": {eq(postID)},
		"select":  {"*,author:profiles!comments_author_id_fkey(display_name,username)"},
		"order":   {"created_at.asc"},
	}
	if err := db.getRows(ctx, "comments", q, &rows); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	out := make([]models.Comment, 0, len(rows))
	for _, r := range rows {
		c := r.Comment
		c.AuthorName = r.Author.name()
		out = append(out, c)
	}
	return out, nil
}

// Follow 关注
func (db *SupabaseDatabase) Follow(ctx context.Context, followerID, followingID string) error {
	_, _, err := db.makeRequestWithHeaders(ctx, http.MethodPost, "/follows?on_conflict=follower_id,following_id",
		map[string]string{"follower_id": followerID, "following_id": followingID}, ignoreDuplicates)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

// Unfollow 取消关注
func (db *SupabaseDatabase) Unfollow(ctx context.Context, followerID, followingID string) error {
	q := url.Values{"follower_id": {eq(followerID)}, "following_id": {eq(followingID)}}
	if _, err := db.mutateRows(ctx, http.MethodDelete, "follows", q, nil); err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

// ================= Messages =================

// SendMessage 发送私信
func (db *SupabaseDatabase) SendMessage(ctx context.Context, m *models.Message) error {
	if _, err := db.makeRequest(ctx, http.MethodPost, "/messages", m); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// ListMessages 私信列表，最新在前
func (db *SupabaseDatabase) ListMessages(ctx context.Context, userID, withUserID string, limit int) ([]models.Message, error) {
	q := url.Values{
		"select": {"*"},
		"order":  {"created_at.desc"},
		"limit":  {strconv.Itoa(limit)},
	}
	if withUserID != "" {
		q.Set("or", fmt.Sprintf("(and(sender_id.eq.%s,receiver_id.eq.%s),and(sender_id.eq.%s,receiver_id.eq.%s))",
			userID, withUserID, withUserID, userID))
	} else {
		q.Set("or", fmt.Sprintf("(sender_id.eq.%s,receiver_id.eq.%s)", userID, userID))
	}
	rows := []models.Message{}
	if err := db.getRows(ctx, "messages", q, &rows); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return rows, nil
}

// MarkMessageRead 接收者标记已读
func (db *SupabaseDatabase) MarkMessageRead(ctx context.Context, id, receiverID string) error {
	n, err := db.mutateRows(ctx, http.MethodPatch, "messages", url.Values{"id": {eq(id)}, "receiver_id": {eq(receiverID)}},
		map[string]bool{"is_read": true})
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	return nil
}
