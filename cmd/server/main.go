package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"ashare_store/internal/app/di"
	"ashare_store/internal/app/router"
	"ashare_store/internal/platform/config"
	platformdb "ashare_store/internal/platform/db"
	"ashare_store/internal/platform/logging"
	infraredis "ashare_store/internal/platform/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfgPath := "config/ashare.yaml"
	if p := os.Getenv("ASHARE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	logging.SetDefault(logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, err := platformdb.Open(cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("failed to access database handle", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, cfg.Redis); err != nil {
		slog.Warn("Redis unavailable. Running without range cache.", "error", err)
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	// a zero TTL expires each range at the next 09:00 refresh
	store := di.NewStore(db, di.StoreOptions{
		Redis:          rdb,
		RedisTTL:       cfg.Redis.TTL,
		RedisNamespace: cfg.Redis.Namespace,
	})

	if cfg.Auth.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set. Every query request will be rejected.")
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router.NewRouter(di.NewHandlers(store), sqlDB, cfg.Auth.JWTSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}
