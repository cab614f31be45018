package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/app"
	"github.com/stemsi/qbank-core/internal/auth"
	"github.com/stemsi/qbank-core/internal/config"
	"github.com/stemsi/qbank-core/internal/handler"
	"github.com/stemsi/qbank-core/internal/logger"
	"github.com/stemsi/qbank-core/internal/mediator"
	"github.com/stemsi/qbank-core/internal/middleware"
	"github.com/stemsi/qbank-core/internal/router"
	"github.com/stemsi/qbank-core/internal/service"
	"github.com/stemsi/qbank-core/internal/validator"
	"github.com/stemsi/qbank-core/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting question bank core")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect Storage ───────────────────────────────────────────────
	storage, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer storage.Close()

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token service")
	}

	// ─── Initialize Services & Dispatcher ──────────────────────────────
	builder := mediator.NewBuilder(log)
	service.New(storage.Deps).Register(builder)
	dispatcher, err := builder.Build()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build dispatcher")
	}

	handlers := &router.Handlers{
		Question:   handler.NewQuestionHandler(dispatcher),
		ChangeFeed: handler.NewChangeFeedHandler(dispatcher, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	if storage.ChangeLog != nil {
		changeLogWorker := worker.NewChangeLogWorker(storage.ChangeLog, storage.Redis, cfg, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			changeLogWorker.Start(workerCtx)
		}()
	}

	writeLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	go writeLimiter.Run(workerCtx.Done())

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokens, handlers, writeLimiter, cfg, log)

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

	// 2. Stop background workers and wait for the change log to flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
