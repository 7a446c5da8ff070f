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

	"ptt-dispatch/internal/audit"
	"ptt-dispatch/internal/auth"
	"ptt-dispatch/internal/call"
	"ptt-dispatch/internal/config"
	"ptt-dispatch/internal/directory"
	"ptt-dispatch/internal/httpapi"
	"ptt-dispatch/internal/presence"
	sigrelay "ptt-dispatch/internal/signal"
	"ptt-dispatch/pkg/logger"
	"ptt-dispatch/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Storage and identity handles are injected at construction; nothing below
	// reaches for ambient globals.
	dirRepo := directory.NewPostgresRepo(db)
	presenceSvc := presence.NewService(presence.NewPostgresRepo(db), dirRepo)

	var guard call.LineGuard
	if cfg.Call.RingGuardEnabled {
		guard = call.NewRingGuard(rdb, cfg.RingGuardTTL())
		log.Info("call ring guard enabled", "ttl", cfg.RingGuardTTL())
	}
	trail := audit.NewService(audit.NewPostgresRepo(db))
	callRepo := call.NewPostgresRepo(db)
	callSvc := call.NewService(callRepo, presenceSvc, dirRepo, guard, call.AuditAdapter{Audit: trail})
	signalSvc := sigrelay.NewService(sigrelay.NewPostgresRepo(db), callRepo)

	h := httpapi.Handlers{
		Auth:     authManager,
		Presence: presenceSvc,
		Calls:    callSvc,
		Signals:  signalSvc,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(httpapi.CORS(cfg.CORSOrigin()))
	r.HandleMethodNotAllowed = true

	registerRoutes(r, auth.RequireAccessToken(authManager), h)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
