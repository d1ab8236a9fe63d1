package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/blobstore"
	"github.com/skillproof/proctor-backend/internal/catalog"
	"github.com/skillproof/proctor-backend/internal/config"
	"github.com/skillproof/proctor-backend/internal/database"
	"github.com/skillproof/proctor-backend/internal/evaluation"
	"github.com/skillproof/proctor-backend/internal/handler"
	"github.com/skillproof/proctor-backend/internal/identity"
	"github.com/skillproof/proctor-backend/internal/logger"
	"github.com/skillproof/proctor-backend/internal/router"
	"github.com/skillproof/proctor-backend/internal/session"
	"github.com/skillproof/proctor-backend/internal/submission"
	"github.com/skillproof/proctor-backend/internal/validator"
	"github.com/skillproof/proctor-backend/internal/worker"
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
		Msg("Starting Proctor Backend")

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

	// ─── Blob Storage ──────────────────────────────────────────────────
	blobs, err := blobstore.NewLocal(cfg.BlobDir, cfg.MaxUploadBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize blob storage")
	}

	// ─── Upstream Clients ──────────────────────────────────────────────
	verifier := identity.NewVerifier(cfg.JWTSecret)
	catalogClient := catalog.NewClient(cfg.CatalogBaseURL, rdb, log)
	evalClient := evaluation.NewClient(cfg.EvaluationBaseURL, blobs, log)

	// ─── Session Engine ────────────────────────────────────────────────
	protocol := submission.NewProtocol(evalClient, log)
	manager := session.NewManager(cfg, rdb, protocol, blobs, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(catalogClient, evalClient, manager, blobs, log),
		WS:      handler.NewWSHandler(manager, log, cfg.AllowedOrigins),
		System:  handler.NewSystemHandler(rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	violationWorker := worker.NewViolationWorker(pool, rdb, log)
	go violationWorker.Start(workerCtx)
	go manager.RunReaper(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(verifier, handlers, cfg)

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

	// 2. Stop the reaper and the worker, wait for the queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
