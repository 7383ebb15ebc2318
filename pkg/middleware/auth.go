package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"club-space-backend/pkg/config"
	"club-space-backend/pkg/logger"
	"club-space-backend/pkg/models"
	"club-space-backend/pkg/utils"
)

// ContextKey 用于在context中存储会话信息的键
type ContextKey string

const (
	SessionContextKey ContextKey = "session"
)

// ErrNoSession 请求未携带有效会话
var ErrNoSession = errors.New("user not authenticated")

// bearerToken 优先取 Authorization 头，其次取登录时写入的 cookie
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if c, err := r.Cookie("access_token"); err == nil && c.Value != "" {
			return c.Value, true
		}
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader || token == "" {
		return "", false
	}
	return token, true
}

// AuthMiddleware JWT认证中间件
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context())

			if _, err := r.Cookie("access_token"); r.Header.Get("Authorization") == "" && err != nil {
				log.Debug("❌ Auth middleware: Missing authorization header")
				utils.WriteUnauthorizedResponse(w, "Missing authorization header")
				return
			}
			tokenString, ok := bearerToken(r)
			if !ok {
				log.Debug("❌ Auth middleware: Invalid authorization header format")
				utils.WriteUnauthorizedResponse(w, "Invalid authorization header format")
				return
			}

			session, err := jwtService.ValidateAccessToken(tokenString)
			if err != nil {
				log.WithError(err).Debug("❌ Auth middleware: Token rejected")
				utils.WriteUnauthorizedResponse(w, "Invalid token")
				return
			}

			entry := log.WithField("user_id", session.UserID)
			ctx := logger.WithContext(WithSession(r.Context(), session), entry)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware 可选的认证中间件（不强制要求认证）
func OptionalAuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			// token无效时按匿名请求处理
			if session, err := jwtService.ValidateAccessToken(tokenString); err == nil {
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSessionFromContext 从context中获取会话信息
func GetSessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(SessionContextKey).(*models.Session)
	return session, ok && session != nil
}

// RequireSession 要求用户必须已认证的辅助函数
func RequireSession(ctx context.Context) (*models.Session, error) {
	session, ok := GetSessionFromContext(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	return session, nil
}

// WithSession 将会话写入context
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, session)
}
