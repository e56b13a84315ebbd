// Command api is the Pinstats league API server.
//
// Usage:
//
//	pinstats-api
//	API_PORT=8080 pinstats-api

// @title Pinstats League API
// @version 1.0.0
// @description Pinball league statistics API serving per-machine player/team stats, percentile thresholds, Glicko ratings, and pre-match scouting reports.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Pinstats
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/pinleague/pinstats/internal/api"
	"github.com/pinleague/pinstats/internal/cache"
	"github.com/pinleague/pinstats/internal/config"
	"github.com/pinleague/pinstats/internal/db"
	"github.com/pinleague/pinstats/internal/listener"
	"github.com/pinleague/pinstats/internal/maintenance"
	"github.com/pinleague/pinstats/internal/pipeline"
	"github.com/pinleague/pinstats/internal/registry"
	"github.com/pinleague/pinstats/internal/store"

	_ "github.com/pinleague/pinstats/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	st := store.New(pool)

	reg, err := registry.Load(ctx, pool)
	if err != nil {
		logger.Error("Failed to load machine registry", "error", err)
		os.Exit(1)
	}

	orch := &pipeline.Orchestrator{
		Store:      st,
		Registry:   reg,
		IPRCutoffs: cfg.IPRCutoffs,
		Logger:     logger,
	}

	// A recompute pass replaces one season's aggregates and ratings, then
	// drops the cache so readers see the new rows immediately.
	recompute := func(ctx context.Context, season int) {
		result := orch.Run(ctx, []int{season}, 1)
		ratings := orch.RunRatings(ctx, []int{season})
		appCache.Invalidate()
		logger.Info("Recompute pass finished",
			"season", season,
			"aggregates", result.Summary(),
			"ratings", ratings.Summary())
	}

	// React to scores_loaded notifications from the ingest command.
	go listener.Start(ctx, cfg.DatabaseURL, recompute, logger)

	// Periodic current-season refresh (disabled when interval is zero).
	go maintenance.Start(ctx, maintenance.Config{
		RefreshInterval: cfg.RefreshInterval,
		CurrentSeason:   cfg.CurrentSeason,
	}, recompute, logger)

	// Create router
	router := api.NewRouter(pool, st, appCache, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Pinstats League API",
			"addr", addr,
			"environment", cfg.Environment,
			"season", cfg.CurrentSeason,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
