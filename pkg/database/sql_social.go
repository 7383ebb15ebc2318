package database

import (
	"context"
	"fmt"
	"time"

	"club-space-backend/pkg/models"
)

// CreatePost 发布动态
func (d *SQLDatabase) CreatePost(ctx context.Context, p *models.Post) error {
	_, err := d.exec(ctx, d.db, `INSERT INTO posts (id, author_id, content, image_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.AuthorID, p.Content, p.ImageURL, p.CreatedAt)
	return classify("create post", err)
}

// GetPost 获取动态
func (d *SQLDatabase) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	err := d.queryRow(ctx, d.db, `SELECT id, author_id, content, COALESCE(image_url, ''), created_at FROM posts WHERE id = ?`, id).
		Scan(&p.ID, &p.AuthorID, &p.Content, &p.ImageURL, &p.CreatedAt)
	if isNoRows(err) {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

// ListFeed 动态流：作者信息、点赞/评论数、当前用户是否点赞
func (d *SQLDatabase) ListFeed(ctx context.Context, q models.FeedQuery) ([]models.PostWithDetails, error) {
	query := `SELECT p.id, p.author_id, p.content, COALESCE(p.image_url, ''), p.created_at,
			COALESCE(NULLIF(a.display_name, ''), a.username, ''), COALESCE(a.avatar_url, ''),
			(SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id),
			(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id),
			(SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id AND l.user_id = ?)
		FROM posts p LEFT JOIN profiles a ON a.id = p.author_id`
	args := []interface{}{q.ViewerID}
	if q.FollowingOnly {
		query += ` WHERE p.author_id = ? OR p.author_id IN (SELECT following_id FROM follows WHERE follower_id = ?)`
		args = append(args, q.ViewerID, q.ViewerID)
	}
	query += ` ORDER BY p.created_at DESC LIMIT ?`
	args = append(args, q.Limit)

	rows, err := d.query(ctx, d.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	defer rows.Close()

	out := []models.PostWithDetails{}
	for rows.Next() {
		var p models.PostWithDetails
		var liked int
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Content, &p.ImageURL, &p.CreatedAt,
			&p.AuthorName, &p.AuthorAvatar, &p.LikeCount, &p.CommentCount, &liked); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.Liked = liked > 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// LikePost 点赞（重复点赞视为成功）
func (d *SQLDatabase) LikePost(ctx context.Context, postID, userID string) error {
	_, err := d.exec(ctx, d.db, `INSERT INTO likes (post_id, user_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (post_id, user_id) DO NOTHING`, postID, userID, time.Now().UTC())
	return classify("like post", err)
}

// UnlikePost 取消点赞
func (d *SQLDatabase) UnlikePost(ctx context.Context, postID, userID string) error {
	_, err := d.exec(ctx, d.db, `DELETE FROM likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	return classify("unlike post", err)
}

// CreateComment 发表评论
func (d *SQLDatabase) CreateComment(ctx context.Context, c *models.Comment) error {
	_, err := d.exec(ctx, d.db, `INSERT INTO comments (id, post_id, author_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.PostID, c.AuthorID, c.Content, c.CreatedAt)
	return classify("create comment", err)
}

// ListComments 评论按时间升序
func (d *SQLDatabase) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	rows, err := d.query(ctx, d.db, `SELECT c.id, c.post_id, c.author_id, c.content, c.created_at,
			COALESCE(NULLIF(p.display_name, ''), p.username, '')
		FROM comments c LEFT JOIN profiles p ON p.id = c.author_id
		WHERE c.post_id = ? ORDER BY c.created_at`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.AuthorName); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Follow 关注（重复关注视为成功）
func (d *SQLDatabase) Follow(ctx context.Context, followerID, followingID string) error {
	_, err := d.exec(ctx, d.db, `INSERT INTO follows (follower_id, following_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (follower_id, following_id) DO NOTHING`, followerID, followingID, time.Now().UTC())
	return classify("follow", err)
}

// Unfollow 取消关注
func (d *SQLDatabase) Unfollow(ctx context.Context, followerID, followingID string) error {
	_, err := d.exec(ctx, d.db, `DELETE FROM follows WHERE follower_id = ? AND following_id = ?`, followerID, followingID)
	return classify("unfollow", err)
}

// SendMessage 发送私信
func (d *SQLDatabase) SendMessage(ctx context.Context, m *models.Message) error {
	_, err := d.exec(ctx, d.db, `INSERT INTO messages (id, sender_id, receiver_id, content, is_read, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.SenderID, m.ReceiverID, m.Content, m.IsRead, m.CreatedAt)
	return classify("send message", err)
}

// ListMessages 用户的私信（可限定对话方），最新在前
func (d *SQLDatabase) ListMessages(ctx context.Context, userID, withUserID string, limit int) ([]models.Message, error) {
	query := `SELECT id, sender_id, receiver_id, content, is_read, created_at FROM messages`
	var args []interface{}
	if withUserID != "" {
		query += ` WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)`
		args = append(args, userID, withUserID, withUserID, userID)
	} else {
		query += ` WHERE sender_id = ? OR receiver_id = ?`
		args = append(args, userID, userID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.query(ctx, d.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkMessageRead 接收者标记已读
func (d *SQLDatabase) MarkMessageRead(ctx context.Context, id, receiverID string) error {
	res, err := d.exec(ctx, d.db, `UPDATE messages SET is_read = ? WHERE id = ? AND receiver_id = ?`, true, id, receiverID)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return affectedOne(res, fmt.Errorf("message %s: %w", id, ErrNotFound))
}
