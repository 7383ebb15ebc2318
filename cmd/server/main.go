package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"club-space-backend/pkg/config"
	"club-space-backend/pkg/database"
	"club-space-backend/pkg/handlers"
	"club-space-backend/pkg/logger"
	"club-space-backend/pkg/models"

	"github.com/sirupsen/logrus"
)

// demoSpaces 本地开发用的场地数据
var demoSpaces = []models.Space{
	{ID: "8a1f0c52-4f7e-4c7b-9d35-1c0f5a7e2b01", Name: "연습실 A", Location: "Seoul Mapo-gu", Capacity: 6, HourlyRate: 12000, Description: "Soundproof band room"},
	{ID: "8a1f0c52-4f7e-4c7b-9d35-1c0f5a7e2b02", Name: "연습실 B", Location: "Seoul Mapo-gu", Capacity: 4, HourlyRate: 9000, Description: "Small rehearsal room"},
	{ID: "8a1f0c52-4f7e-4c7b-9d35-1c0f5a7e2b03", Name: "세미나실", Location: "Seoul Gangnam-gu", Capacity: 20, HourlyRate: 25000, Description: "Projector and whiteboard"},
}

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.LogLevel, cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("❌ Invalid configuration")
	}

	ctx := context.Background()
	db, err := database.GetDatabase(ctx, database.DatabaseConfig{
		UseLocalDB:  cfg.UseLocalDB,
		LocalDBPath: cfg.LocalDBPath,
		PostgresDSN: cfg.PostgresDSN,
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
		Debug:       cfg.Debug,
	})
	if err != nil {
		logrus.WithError(err).Fatal("❌ Failed to connect to database")
	}
	defer database.CloseDatabase()

	if sqlDB, ok := db.(*database.SQLDatabase); ok && cfg.UseLocalDB {
		now := time.Now().UTC()
		spaces := make([]models.Space, len(demoSpaces))
		for i, s := range demoSpaces {
			s.CreatedAt = now
			spaces[i] = s
		}
		if err := sqlDB.SeedSpaces(ctx, spaces); err != nil {
			logrus.WithError(err).Warn("⚠️ Failed to seed demo spaces")
		}
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(cfg, handlers.Dependencies{DB: db, Limiter: handlers.NewLimiter(cfg)}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("🚀 Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("❌ Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("❌ Graceful shutdown failed")
	}
	logrus.Info("👋 Server stopped")
}
