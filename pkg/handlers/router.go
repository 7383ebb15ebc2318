package handlers

import (
	"fmt"
	"net/http"
	"time"

	"club-space-backend/pkg/booking"
	"club-space-backend/pkg/config"
	"club-space-backend/pkg/database"
	customMiddleware "club-space-backend/pkg/middleware"
	"club-space-backend/pkg/services"
	"club-space-backend/pkg/teams"
	"club-space-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// Dependencies 路由依赖；Limiter 为空时只使用进程内限流
type Dependencies struct {
	DB      database.DatabaseInterface
	Limiter customMiddleware.Limiter
	Clock   booking.Clock
}

// NewLimiter 根据 REDIS_URL 创建共享限流计数器，未配置或连接失败时返回 nil
func NewLimiter(cfg *config.Config) customMiddleware.Limiter {
	if cfg.RedisURL == "" {
		return nil
	}
	client, err := customMiddleware.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Warn("⚠️ Invalid REDIS_URL, using in-memory rate limiting")
		return nil
	}
	logrus.Info("🚦 Using Redis rate limiter")
	return customMiddleware.NewRedisLimiter(client)
}

// NewRouter 构建完整的 chi 路由（serverless 入口与本地服务器共用）
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	router := chi.NewRouter()
	setupMiddleware(router, cfg)
	setupRoutes(router, cfg, deps)
	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	router.Use(middleware.RealIP)
	// 先规范化路径与 scheme/host，再记录日志和路由
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.RequestLogger())
	router.Use(customMiddleware.Recovery(cfg))
	router.Use(customMiddleware.CORS(cfg))

	// Vercel 函数有时间限制，留5秒缓冲
	router.Use(middleware.Timeout(25 * time.Second))
	router.Use(middleware.Compress(5))
	router.Use(customMiddleware.MaxBodySize(maxBodyBytes))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, deps Dependencies) {
	db := deps.DB
	policy := booking.NewPolicy(cfg.BusinessTimezone, deps.Clock)

	reservationSvc := services.NewReservationService(db, policy)
	teamSvc := services.NewTeamService(db, teams.NewPolicy(cfg.TeamSize))
	groupSvc := services.NewGroupService(db)
	socialSvc := services.NewSocialService(db)

	authHandler := NewAuthHandler(cfg, db, socialSvc)
	reservationHandler := NewReservationHandler(reservationSvc)
	teamHandler := NewTeamHandler(teamSvc)
	groupHandler := NewGroupHandler(groupSvc)
	socialHandler := NewSocialHandler(socialSvc)

	router.Get("/", authHandler.HealthCheck)

	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.OptionalAuthMiddleware(cfg))
		r.Use(customMiddleware.RateLimit(cfg.RateLimitPerMinute, deps.Limiter, customMiddleware.NewMemoryLimiter()))
		r.Use(customMiddleware.ContentTypeJSON)

		// 公开路由
		r.Route("/auth", func(r chi.Router) {
			r.Get("/google", authHandler.GoogleLogin)
			r.Get("/google/callback", authHandler.GoogleCallback)
			r.Get("/user", authHandler.CurrentUser)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
		})
		r.Get("/spaces", reservationHandler.ListSpaces)
		r.Get("/spaces/{id}", reservationHandler.GetSpace)
		r.Get("/spaces/{id}/availability", reservationHandler.Availability)

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))

			r.Post("/reservations", reservationHandler.CreateReservation)
			r.Get("/reservations/my", reservationHandler.MyReservations)
			r.Post("/reservations/{id}/cancel", reservationHandler.CancelReservation)

			r.Post("/create-team", teamHandler.CreateTeam)
			r.Post("/respond-invitation", teamHandler.RespondInvitation)
			r.Get("/notifications", teamHandler.Notifications)
			r.Get("/teams", teamHandler.ListTeams)
			r.Post("/teams/{id}/disband", teamHandler.DisbandTeam)
			r.Get("/teams/meetings", teamHandler.ListMeetings)
			r.Post("/teams/meetings", teamHandler.CreateMeeting)

			r.Get("/search-users", socialHandler.SearchUsers)
			r.Post("/search-users", socialHandler.SearchUsers)

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", groupHandler.ListGroups)
				r.Post("/", groupHandler.CreateGroup)
				r.Get("/{id}", groupHandler.GetGroup)
				r.Post("/{id}/members", groupHandler.JoinGroup)
				r.Delete("/{id}/members", groupHandler.LeaveGroup)
			})

			r.Route("/profiles/{id}", func(r chi.Router) {
				r.Get("/", socialHandler.GetProfile)
				r.Post("/follow", socialHandler.Follow)
				r.Delete("/follow", socialHandler.Unfollow)
			})

			r.Route("/posts", func(r chi.Router) {
				r.Get("/", socialHandler.Feed)
				r.Post("/", socialHandler.CreatePost)
				r.Post("/{id}/like", socialHandler.Like)
				r.Delete("/{id}/like", socialHandler.Unlike)
				r.Get("/{id}/comments", socialHandler.ListComments)
				r.Post("/{id}/comments", socialHandler.CreateComment)
			})

			r.Get("/messages", socialHandler.ListMessages)
			r.Post("/messages", socialHandler.SendMessage)
			r.Post("/messages/{id}/read", socialHandler.MarkMessageRead)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), nil)
	})
}
