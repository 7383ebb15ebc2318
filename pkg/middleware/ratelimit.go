package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"club-space-backend/pkg/logger"
	"club-space-backend/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Limiter 固定窗口计数器，返回窗口内已用次数
type Limiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// ConnectRedis 支持 redis:// URL 或 host:port 两种写法
func ConnectRedis(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisLimiter 多实例共享的计数器
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter 创建基于 Redis 的限流计数器
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Hit 计数加一，窗口首次命中时设置过期
func (l *RedisLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := "ratelimit:" + key
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		p.ExpireNX(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryLimiter 单实例内存计数器，Redis 未配置或不可用时使用
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

// NewMemoryLimiter 创建内存计数器
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*memoryWindow), now: time.Now}
}

// Hit 计数加一
func (l *MemoryLimiter) Hit(_ context.Context, key string, window time.Duration) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		// 顺带清理过期窗口
		if len(l.windows) > 10000 {
			for k, v := range l.windows {
				if !now.Before(v.resetAt) {
					delete(l.windows, k)
				}
			}
		}
		w = &memoryWindow{resetAt: now.Add(window)}
		l.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// RateLimit 按客户端限流（已登录用户按 user_id，否则按 IP），超限返回 429
// primary 出错时退回 fallback，两者都失败时放行
func RateLimit(perMinute int, primary, fallback Limiter) func(http.Handler) http.Handler {
	const window = time.Minute
	return func(next http.Handler) http.Handler {
		if perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + getClientIP(r)
			if session, ok := GetSessionFromContext(r.Context()); ok {
				key = "user:" + session.UserID
			}

			count, err := hit(r.Context(), key, window, primary, fallback)
			if err != nil {
				logger.FromContext(r.Context()).WithError(err).Warn("⚠️ Rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(perMinute) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if count > int64(perMinute) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				utils.WriteTooManyRequestsResponse(w, "Too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hit(ctx context.Context, key string, window time.Duration, primary, fallback Limiter) (int64, error) {
	if primary != nil {
		count, err := primary.Hit(ctx, key, window)
		if err == nil || fallback == nil {
			return count, err
		}
		logger.FromContext(ctx).WithError(err).Warn("⚠️ Redis rate limiter failed, using in-memory limiter")
	}
	if fallback == nil {
		return 0, nil
	}
	return fallback.Hit(ctx, key, window)
}
