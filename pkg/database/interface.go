package database

import (
	"context"
	"errors"
	"os"

	"club-space-backend/pkg/models"

	"github.com/sirupsen/logrus"
)

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// 用户资料
	UpsertProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	SearchProfilesByName(ctx context.Context, query string, limit int) ([]models.Profile, error)
	FindProfilesByEmailPrefix(ctx context.Context, prefix string, limit int) ([]models.Profile, error)
	GetProfileStats(ctx context.Context, profileID, viewerID string) (*models.ProfileStats, error)

	// 场地
	ListSpaces(ctx context.Context) ([]models.Space, error)
	GetSpace(ctx context.Context, id string) (*models.Space, error)

	// 预约
	ListConfirmedReservations(ctx context.Context, spaceID, date string) ([]models.Reservation, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	ListUserReservations(ctx context.Context, userID string) ([]models.ReservationWithSpace, error)
	// CancelReservation flips a confirmed reservation owned by userID to cancelled.
	CancelReservation(ctx context.Context, id, userID string) error

	// 小队（创建与回复均为原子操作）
	CreateTeamWithInvitations(ctx context.Context, rec *models.NewTeamRecords) error
	RespondToInvitation(ctx context.Context, resp models.InvitationResponse) (*models.InvitationOutcome, error)
	ListPendingInvitations(ctx context.Context, userID string) ([]models.TeamNotification, error)
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	ListUserTeams(ctx context.Context, userID string) ([]models.TeamWithMembers, error)
	DisbandTeam(ctx context.Context, teamID, leaderID string) error
	CreateMeeting(ctx context.Context, m *models.TeamMeeting) error
	ListMeetings(ctx context.Context) ([]models.TeamMeeting, error)

	// 社区小组
	CreateGroup(ctx context.Context, g *models.CommunityGroup, creator *models.GroupMembership) error
	ListGroups(ctx context.Context, viewerID string) ([]models.GroupSummary, error)
	GetGroup(ctx context.Context, id, viewerID string) (*models.GroupDetail, error)
	JoinGroup(ctx context.Context, m *models.GroupMembership) error
	LeaveGroup(ctx context.Context, groupID, userID string) error

	// 动态、点赞、评论、关注
	CreatePost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListFeed(ctx context.Context, q models.FeedQuery) ([]models.PostWithDetails, error)
	LikePost(ctx context.Context, postID, userID string) error
	UnlikePost(ctx context.Context, postID, userID string) error
	CreateComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error

	// 私信
	SendMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, userID, withUserID string, limit int) ([]models.Message, error)
	MarkMessageRead(ctx context.Context, id, receiverID string) error

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string
	UseLocalDB  bool
	LocalDBPath string
	Debug       bool
}

// NewDatabase 根据环境与配置选择数据库实现
func NewDatabase(config DatabaseConfig) (DatabaseInterface, error) {
	if config.UseLocalDB {
		logrus.WithField("path", config.LocalDBPath).Info("💾 Using local SQLite database")
		return asInterface(NewSQLiteDatabase(config.LocalDBPath))
	}

	if IsVercelEnvironment() {
		logrus.Info("🧭 Detected Vercel production environment")

		// Vercel 优先使用 Supabase（避免 IPv6）
		if config.SupabaseURL != "" && config.SupabaseKey != "" {
			logrus.Info("🚀 Using Supabase REST API (Vercel optimized)")
			return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey), nil
		}
		if config.PostgresDSN != "" {
			logrus.Warn("🌐 Using PostgreSQL in Vercel (may have IPv6 issues)")
			return asInterface(NewPostgresDatabase(config.PostgresDSN))
		}
		return nil, errNoDatabase
	}

	// 非 Vercel 环境：PostgreSQL > Supabase
	if config.PostgresDSN != "" {
		logrus.Info("🗄️ Using PostgreSQL database")
		return asInterface(NewPostgresDatabase(config.PostgresDSN))
	}
	if config.SupabaseURL != "" && config.SupabaseKey != "" {
		logrus.Info("🧰 Using Supabase REST API")
		return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey), nil
	}
	return nil, errNoDatabase
}

var errNoDatabase = errors.New("no valid database configured: set POSTGRES_DSN, SUPABASE_URL+SUPABASE_SERVICE_KEY or USE_LOCAL_DB")

// IsVercelEnvironment 检查是否运行在 Vercel / Lambda
func IsVercelEnvironment() bool {
	return os.Getenv("VERCEL_ENV") != "" || os.Getenv("VERCEL_URL") != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// asInterface 避免把 nil 指针包装成非 nil 接口
func asInterface(db *SQLDatabase, err error) (DatabaseInterface, error) {
	if err != nil {
		return nil, err
	}
	return db, nil
}
