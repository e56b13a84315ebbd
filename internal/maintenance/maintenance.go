// Package maintenance runs periodic background tasks as Go tickers.
// Replaces external cron — all scheduled work is driven from Go since the
// API is already a persistent, long-running service (required for
// LISTEN/NOTIFY).
package maintenance

import (
	"context"
	"log/slog"
	"time"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	RefreshInterval time.Duration // current-season aggregate recompute
	CurrentSeason   int
}

// RecomputeFunc runs a recompute pass for one season.
type RecomputeFunc func(ctx context.Context, season int)

// Start launches the refresh ticker. A pass over an unchanged corpus
// rewrites identical rows, so the ticker can run regardless of whether a
// scores_loaded notification was missed. Blocks until ctx is cancelled.
// Intended to be called with `go`.
func Start(ctx context.Context, cfg Config, recompute RecomputeFunc, logger *slog.Logger) {
	if cfg.RefreshInterval <= 0 {
		logger.Info("Maintenance refresh disabled")
		return
	}

	logger.Info("Maintenance refresh ticker started",
		"interval", cfg.RefreshInterval, "season", cfg.CurrentSeason)

	t := time.NewTicker(cfg.RefreshInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			start := time.Now()
			recompute(ctx, cfg.CurrentSeason)
			logger.Info("Scheduled recompute finished",
				"season", cfg.CurrentSeason,
				"duration", time.Since(start).Round(time.Millisecond))
		case <-ctx.Done():
			logger.Info("Maintenance refresh ticker stopped")
			return
		}
	}
}
