package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/config"
	"github.com/stemsi/leave-assessment/internal/database"
	"github.com/stemsi/leave-assessment/internal/handler"
	"github.com/stemsi/leave-assessment/internal/judge"
	"github.com/stemsi/leave-assessment/internal/lock"
	"github.com/stemsi/leave-assessment/internal/logger"
	"github.com/stemsi/leave-assessment/internal/metrics"
	"github.com/stemsi/leave-assessment/internal/middleware"
	"github.com/stemsi/leave-assessment/internal/pubsub"
	"github.com/stemsi/leave-assessment/internal/repository"
	"github.com/stemsi/leave-assessment/internal/router"
	"github.com/stemsi/leave-assessment/internal/service"
	"github.com/stemsi/leave-assessment/internal/validator"
	"github.com/stemsi/leave-assessment/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Leave Assessment Engine")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	txManager := database.NewTxManager(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	leaveRepo := repository.NewLeaveRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Infrastructure ───────────────────────────────────────────────
	recorder := metrics.New()
	locker := lock.NewRedisLocker(rdb)
	publisher := pubsub.NewRedisPublisher(rdb)
	judgeClient := judge.NewClient(judge.Config{
		BaseURL: cfg.JudgeURL,
		APIKey:  cfg.JudgeAPIKey,
		Timeout: cfg.JudgeTimeout,
	}, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	settingService := service.NewSettingService(
		settingRepo,
		service.NewRedisSettingsCache(rdb, cfg.SettingsCacheTTL),
		txManager,
		log,
	)
	dashboardService := service.NewDashboardService(dashboardRepo)
	scorer := service.NewScorer(judgeClient, recorder, log)
	composer := service.NewTestComposer(questionRepo, log)

	leaveService := service.NewLeaveService(leaveRepo, attemptRepo, composer, questionRepo, settingService, txManager, log)
	attemptService := service.NewAttemptService(attemptRepo, leaveRepo, questionRepo, scorer, settingService, txManager, recorder, log)
	proctoringService := service.NewProctoringService(
		attemptRepo,
		leaveRepo,
		locker,
		cfg.AttemptLockTTL,
		settingService,
		txManager,
		publisher,
		recorder,
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Leave:     handler.NewLeaveHandler(leaveService, log),
		Test:      handler.NewTestHandler(attemptService, proctoringService, log),
		WS:        handler.NewProctorWSHandler(proctoringService, log, cfg.AllowedOrigins),
		Setting:   handler.NewSettingHandler(settingService, log),
		Monitor:   handler.NewMonitorHandler(pubsub.NewRedisSubscriber(rdb), attemptService, log),
		Dashboard: handler.NewDashboardHandler(dashboardService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	expiryWorker := worker.NewExpiryWorker(attemptService, locker, cfg, log)
	go func() {
		defer close(workerDone)
		expiryWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	limiter := middleware.NewRateLimiter(
		middleware.NewRedisWindowCounter(rdb),
		"student",
		cfg.RateLimitPerMinute,
		time.Minute,
		log,
	)
	r := router.SetupRouter(authService, handlers, cfg, recorder, limiter)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the expiry sweep and wait for the current tick to finish.
	workerCancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Expiry worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
