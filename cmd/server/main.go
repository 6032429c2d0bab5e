package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alphanex/internal/api"
	"alphanex/internal/auth"
	"alphanex/internal/config"
	"alphanex/internal/database"
	"alphanex/internal/scoring"
	"alphanex/internal/service"
	"alphanex/internal/storage"
)

func main() {
	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg := config.Load()
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"storage_backend", cfg.StorageBackend,
		"max_file_size", cfg.MaxFileSize,
		"review_quorum", cfg.ReviewQuorum,
		"demo_mode", cfg.DemoMode,
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations complete")

	// Initialize blob storage
	var store storage.Store
	switch cfg.StorageBackend {
	case "minio":
		store, err = storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			slog.Error("failed to create minio client", "error", err)
			os.Exit(1)
		}
	default:
		store = storage.NewFileSystemStore(cfg.StoragePath)
	}
	if err := store.EnsureReady(ctx); err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	slog.Info("blob storage initialized", "backend", cfg.StorageBackend)

	// Scoring oracle is optional; without an API key every upload gets
	// neutral scores and auto-flagging is off.
	var oracle scoring.Oracle
	if cfg.GeminiAPIKey != "" {
		oracle, err = scoring.NewGenAIOracle(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Error("failed to create scoring oracle", "error", err)
			os.Exit(1)
		}
		slog.Info("scoring oracle enabled", "model", cfg.GeminiModel)
	} else {
		slog.Warn("no GEMINI_API_KEY set, content scoring disabled")
	}

	// Initialize repository and services
	repo := database.NewRepository(db)
	ledger := service.NewLedger(cfg)
	rewards := service.NewRewardTable(cfg)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenExpiry)

	accounts := service.NewAccountService(repo, tokens, ledger, cfg)
	uploads := service.NewUploadService(db, repo, store, oracle, ledger, rewards, cfg)
	reviews := service.NewReviewService(db, repo, ledger, rewards, cfg)
	withdrawals, err := service.NewWithdrawalService(db, repo, cfg)
	if err != nil {
		slog.Error("invalid withdrawal configuration", "error", err)
		os.Exit(1)
	}

	// Start the orphaned-blob janitor
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	janitor := storage.NewJanitor(repo, store, cfg.JanitorInterval)
	janitor.Start(janitorCtx)

	// Setup HTTP router
	handler := api.NewHandler(accounts, uploads, reviews, withdrawals, db, repo)
	e := api.SetupRouter(handler, accounts, tokens, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr, "base_url", cfg.BaseURL)
		if err := e.Start(addr); err != nil {
			slog.Info("server stopped", "reason", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop the janitor
	janitorCancel()
	janitor.Wait()

	slog.Info("server exited cleanly")
}
