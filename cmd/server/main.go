package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courseloop/hwboard-backend/internal/analytics"
	"github.com/courseloop/hwboard-backend/internal/auditlog"
	"github.com/courseloop/hwboard-backend/internal/config"
	"github.com/courseloop/hwboard-backend/internal/database"
	"github.com/courseloop/hwboard-backend/internal/handler"
	"github.com/courseloop/hwboard-backend/internal/lms"
	"github.com/courseloop/hwboard-backend/internal/logger"
	"github.com/courseloop/hwboard-backend/internal/mailer"
	"github.com/courseloop/hwboard-backend/internal/repository"
	"github.com/courseloop/hwboard-backend/internal/router"
	"github.com/courseloop/hwboard-backend/internal/service"
	"github.com/courseloop/hwboard-backend/internal/validator"
	"github.com/courseloop/hwboard-backend/internal/worker"
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
		Msg("Starting HWBoard Backend")

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

	// ─── Open Audit Log ────────────────────────────────────────────────
	audit, err := auditlog.Open(cfg.AuditLogPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.AuditLogPath).Msg("Failed to open audit log")
	}
	defer audit.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userSetRepo := repository.NewUserSetRepository(pool)
	userProblemRepo := repository.NewUserProblemRepository(pool)
	globalProblemRepo := repository.NewGlobalProblemRepository(pool)
	pastAnswerRepo := repository.NewPastAnswerRepository(pool)
	achievementRepo := repository.NewAchievementRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)

	// ─── Initialize Side Channels ──────────────────────────────────────
	sensor := analytics.NewSensor(rdb, log)
	mail := mailer.New(cfg.SMTPAddr, cfg.SMTPFrom, cfg.ReturnPath, log)

	var lmsClient lms.Client
	if cfg.LMSGradeMode != config.LMSGradeModeOff && cfg.LMSOutcomeURL != "" {
		lmsClient = lms.NewHTTPClient(cfg.LMSOutcomeURL, cfg.LMSClientID, cfg.JWTSecret, log)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	submissionService := service.NewSubmissionService(
		userSetRepo, userProblemRepo, globalProblemRepo, pastAnswerRepo,
		audit, sensor, lmsClient, mail, cfg, log)
	achievementService := service.NewAchievementService(achievementRepo, userSetRepo, userProblemRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Submission:  handler.NewSubmissionHandler(submissionService),
		Achievement: handler.NewAchievementHandler(achievementService),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	analyticsWorker := worker.NewAnalyticsWorker(analyticsRepo, rdb, log)
	go analyticsWorker.Start(workerCtx)

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

	// 2. Stop the worker and wait for the queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow the worker to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
