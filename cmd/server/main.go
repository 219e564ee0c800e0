package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/config"
	"github.com/stemsi/exstem-adaptive/internal/engine"
	"github.com/stemsi/exstem-adaptive/internal/handler"
	"github.com/stemsi/exstem-adaptive/internal/logger"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/router"
	"github.com/stemsi/exstem-adaptive/internal/service"
	"github.com/stemsi/exstem-adaptive/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("storage", cfg.StorageDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExStem Adaptive")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Initialize Storage ────────────────────────────────────────────
	var (
		store *storage
		err   error
	)
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		store, err = newMemoryStorage(ctx, cfg, log)
	case config.StorageDriverPostgres:
		store, err = newPostgresStorage(ctx, cfg, log)
	default:
		log.Fatal().Str("driver", cfg.StorageDriver).Msg("Unknown STORAGE_DRIVER")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer store.Close()

	// ─── Initialize Services ──────────────────────────────────────────
	monitorService := service.NewMonitorService(store.rdb, log)
	authService := service.NewAuthService(cfg)
	sessionService := service.NewExamSessionService(
		store.bank,
		store.sessions,
		store.events,
		store.guard,
		monitorService,
		service.SessionOptions{
			TimeLimits: engine.TimeLimits{
				model.TierEasy:   cfg.TimeLimits.Easy,
				model.TierMedium: cfg.TimeLimits.Medium,
				model.TierHard:   cfg.TimeLimits.Hard,
			},
			DefaultQuota: cfg.QuestionQuota,
		},
		log,
	)
	proctoringService := service.NewProctoringService(sessionService, store.sink, monitorService, log)

	if cfg.ProctorPasswordHash == "" {
		log.Warn().Msg("PROCTOR_PASSWORD_HASH is empty; proctor login is disabled")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, log),
		Session:    handler.NewSessionHandler(sessionService, log),
		Proctoring: handler.NewProctoringHandler(proctoringService, log),
		WS:         handler.NewWSHandler(proctoringService, log, cfg.AllowedOrigins),
		Probes:     store.probes(),
	}
	if monitorService.Enabled() {
		handlers.Monitor = handler.NewMonitorHandler(monitorService, log)
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workersDone := store.startWorkers(workerCtx)

	limiters := router.NewLimiters(cfg)
	go sweepLimiters(workerCtx, limiters)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, limiters, cfg, log)

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

	// 2. Stop background workers and wait for the queue to drain.
	workerCancel()
	select {
	case <-workersDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Workers did not finish draining in time")
	}

	log.Info().Msg("Shutdown complete")
}

// sweepLimiters drops idle rate limiter buckets until ctx ends.
func sweepLimiters(ctx context.Context, limiters router.Limiters) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiters.Login.Cleanup(10 * time.Minute)
			limiters.Proctoring.Cleanup(10 * time.Minute)
		}
	}
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
