package database

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// idleTimeout 空闲超过该时长的连接在下次获取时重建
const idleTimeout = 30 * time.Minute

// DatabasePool 进程级数据库连接（serverless 冷启动之间复用）
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex

	// newDatabase 可在测试中替换
	newDatabase = NewDatabase
)

// GetDatabase 获取数据库连接（单例 + 健康检查）
func GetDatabase(ctx context.Context, config DatabaseConfig) (DatabaseInterface, error) {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool != nil && !shouldRecreateConnection(ctx, globalPool, config) {
		globalPool.lastUsed = time.Now()
		logrus.Debug("♻️ Reusing existing database connection")
		return globalPool.instance, nil
	}

	logrus.Info("🔄 Creating new database connection")
	if globalPool != nil && globalPool.instance != nil {
		_ = globalPool.instance.Close()
	}
	globalPool = nil

	instance, err := newDatabase(config)
	if err != nil {
		return nil, err
	}
	globalPool = &DatabasePool{instance: instance, config: config, lastUsed: time.Now()}
	return instance, nil
}

// shouldRecreateConnection 判断是否需要重新创建连接
func shouldRecreateConnection(ctx context.Context, pool *DatabasePool, newConfig DatabaseConfig) bool {
	if pool.instance == nil {
		return true
	}
	if pool.config != newConfig {
		logrus.Info("🔄 Database configuration changed, recreating connection")
		return true
	}
	if time.Since(pool.lastUsed) > idleTimeout {
		logrus.Info("⏰ Database connection idle too long, recreating")
		return true
	}
	if err := pool.instance.HealthCheck(ctx); err != nil {
		logrus.WithError(err).Warn("❌ Database health check failed, recreating")
		return true
	}
	return false
}

// CloseDatabase 关闭全局连接（本地服务退出时调用）
func CloseDatabase() {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool != nil && globalPool.instance != nil {
		_ = globalPool.instance.Close()
	}
	globalPool = nil
}

// GetConnectionStats 获取连接池统计信息
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{
			"status":    "no_connection",
			"last_used": nil,
		}
	}

	return map[string]interface{}{
		"status":    "connected",
		"last_used": globalPool.lastUsed.Format(time.RFC3339),
		"age":       time.Since(globalPool.lastUsed).String(),
		"config": map[string]interface{}{
			"use_local_db": globalPool.config.UseLocalDB,
			"has_postgres": globalPool.config.PostgresDSN != "",
			"has_supabase": globalPool.config.SupabaseURL != "",
		},
	}
}
