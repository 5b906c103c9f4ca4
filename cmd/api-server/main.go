package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/omasdev/provider-scheduling/internal/api"
	"github.com/omasdev/provider-scheduling/internal/config"
	"github.com/omasdev/provider-scheduling/internal/db"
	"github.com/omasdev/provider-scheduling/internal/logging"
	"github.com/omasdev/provider-scheduling/internal/records"
	redisclient "github.com/omasdev/provider-scheduling/internal/redis"
	"github.com/omasdev/provider-scheduling/internal/scheduling"
	"github.com/omasdev/provider-scheduling/internal/session"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	if err := db.Migrate(rootCtx, pgPool, cfg.MigrationsDir); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	sessions := session.NewRedisStore(rdb, cfg.SessionTTL)
	repo := scheduling.NewPgRepository(pgPool)
	side := records.NewPgStore(pgPool, logger)
	svc := scheduling.NewService(repo, side, side, logger, cfg.HorizonDays, cfg.SlotMinutes)

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Records:  side,
		Sessions: sessions,
		PgPool:   pgPool,
		Redis:    rdb,
		Logger:   logger,
		Env:      cfg.Env,
		Version:  version,
		DemoPIN:  cfg.DemoLoginPIN,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	logger.Info("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
