package handler

import (
	"net/http"
	"sync"

	"club-space-backend/pkg/config"
	"club-space-backend/pkg/database"
	"club-space-backend/pkg/handlers"
	"club-space-backend/pkg/logger"
	"club-space-backend/pkg/middleware"
	"club-space-backend/pkg/utils"

	"github.com/sirupsen/logrus"
)

var (
	routerMu     sync.Mutex
	cachedRouter http.Handler
	cachedDB     database.DatabaseInterface
	limiter      middleware.Limiter
	initOnce     sync.Once
)

// Handler 是Vercel函数的入口点
// 所有API端点集中在一个Chi路由器中；路由器在冷启动后复用，数据库连接变化时重建
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetCached()
	initOnce.Do(func() {
		logger.Init(cfg.LogLevel, cfg.IsProduction())
		limiter = handlers.NewLimiter(cfg)
	})

	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Error("❌ Configuration error")
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	db, err := database.GetDatabase(r.Context(), database.DatabaseConfig{
		UseLocalDB:  cfg.UseLocalDB,
		LocalDBPath: cfg.LocalDBPath,
		PostgresDSN: cfg.PostgresDSN,
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
		Debug:       cfg.Debug,
	})
	if err != nil {
		logrus.WithError(err).Error("❌ Database unavailable")
		utils.WriteInternalServerErrorResponse(w, "Database unavailable")
		return
	}

	routerFor(cfg, db).ServeHTTP(w, r)
}

func routerFor(cfg *config.Config, db database.DatabaseInterface) http.Handler {
	routerMu.Lock()
	defer routerMu.Unlock()
	if cachedRouter == nil || cachedDB != db {
		cachedRouter = handlers.NewRouter(cfg, handlers.Dependencies{DB: db, Limiter: limiter})
		cachedDB = db
	}
	return cachedRouter
}
