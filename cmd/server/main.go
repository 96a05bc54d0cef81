package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamvault/internal/server/api"
	"streamvault/internal/server/auth"
	"streamvault/internal/server/config"
	"streamvault/internal/server/database"
	"streamvault/internal/server/service"
	"streamvault/internal/server/storage"
	"streamvault/internal/server/stream"
	"streamvault/internal/server/sysinfo"

	"github.com/joho/godotenv"
)

func main() {
	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load .env if present, then config from the environment
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}
	cfg := config.Load()
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"storage_path", cfg.StoragePath,
		"max_upload_size", cfg.MaxUploadSize,
		"session_ttl", cfg.SessionTTL,
	)

	if cfg.SecretKey == "" && cfg.SecretKeyHash == "" {
		slog.Error("SECRET_KEY or SECRET_KEY_HASH must be set")
		os.Exit(1)
	}

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

	// Initialize storage
	store := storage.NewFileSystemStore(cfg.StoragePath)
	if err := store.EnsureDir(); err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	slog.Info("file storage initialized", "path", cfg.StoragePath)

	// Initialize repository and services
	repo := database.NewRepository(db)
	svc := service.NewLibraryService(repo, store, cfg)
	sessions := auth.NewSessionManager(cfg.SessionTTL)
	secrets := auth.NewSecretVerifier(cfg.SecretKey, cfg.SecretKeyHash)
	tracker := stream.NewTracker()
	prober := sysinfo.NewProber()

	// Start orphan-file sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	sweeper := storage.NewOrphanSweeper(repo, store, cfg.CleanupInterval)
	sweeper.Start(sweepCtx)

	// Setup HTTP router
	handler := api.NewHandler(svc, db, sessions, secrets, tracker, prober, cfg)
	e := api.SetupRouter(handler, sessions, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr)
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

	// Stop orphan sweeper
	sweepCancel()
	sweeper.Wait()

	slog.Info("server exited cleanly")
}
