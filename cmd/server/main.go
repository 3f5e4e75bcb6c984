package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prepsio/testline-backend/internal/clock"
	"github.com/prepsio/testline-backend/internal/config"
	"github.com/prepsio/testline-backend/internal/database"
	"github.com/prepsio/testline-backend/internal/handler"
	"github.com/prepsio/testline-backend/internal/logger"
	"github.com/prepsio/testline-backend/internal/repository"
	"github.com/prepsio/testline-backend/internal/router"
	"github.com/prepsio/testline-backend/internal/service"
	"github.com/prepsio/testline-backend/internal/validator"
	"github.com/prepsio/testline-backend/internal/worker"
	"github.com/rs/zerolog"
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
		Msg("Starting Testline Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	// ─── Reference Clock ───────────────────────────────────────────────
	// All test windows are scheduled in one reference timezone.
	loc, err := clock.LoadLocation(cfg.ReferenceTimezone)
	if err != nil {
		log.Fatal().Err(err).Str("tz", cfg.ReferenceTimezone).Msg("Invalid reference timezone")
	}
	clk := clock.System(loc)

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
	userRepo := repository.NewUserRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	responseRepo := repository.NewResponseRepository(pool)
	analysisRepo := repository.NewAnalysisRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(userRepo, authService)
	adminService := service.NewAdminService(adminRepo, authService)
	testService := service.NewTestService(testRepo, questionRepo, rdb, clk, log)
	statusService := service.NewStatusService(testRepo, userRepo, responseRepo, clk)
	submissionService := service.NewSubmissionService(responseRepo, testRepo, questionRepo, sessionRepo, rdb, log)
	sessionService := service.NewSessionService(sessionRepo, responseRepo, testService, statusService, submissionService, rdb, clk, log)
	reportService := service.NewReportService(responseRepo, analysisRepo, testRepo, questionRepo, rdb, log)
	analysisService := service.NewAnalysisService(analysisRepo, responseRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(userService, adminService),
		Session:  handler.NewSessionHandler(sessionService, testService),
		Report:   handler.NewReportHandler(submissionService, reportService, statusService),
		Analysis: handler.NewAnalysisHandler(analysisService),
		Admin:    handler.NewAdminHandler(testService, adminService, responseRepo),
		WS:       handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	snapshotWorker := worker.NewSnapshotWorker(sessionRepo, rdb, log)
	statsWorker := worker.NewStatsWorker(reportService, rdb, log)

	go snapshotWorker.Start(workerCtx)
	go statsWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load today's test papers into Redis BEFORE accepting traffic so a
	// scheduled start doesn't stampede the database.
	testService.PrewarmPaperCaches(ctx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
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

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
