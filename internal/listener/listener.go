// Package listener provides a Postgres LISTEN/NOTIFY consumer for load
// events. It holds a dedicated pgx connection (not from the pool) listening
// on the `scores_loaded` channel.
//
// When the ingest CLI commits new scores it fires pg_notify with the season
// number; this consumer receives the event and triggers a recompute pass for
// that season, so a long-running API process keeps its aggregates current
// without polling.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	channel          = "scores_loaded"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second

	// debounce coalesces bursts of load notifications for the same season
	// (one per file) into a single recompute.
	debounce = 10 * time.Second
)

// RecomputeFunc runs a recompute pass for one season.
type RecomputeFunc func(ctx context.Context, season int)

// Start opens a dedicated connection and listens on the scores_loaded
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, recompute RecomputeFunc, logger *slog.Logger) {
	backoff := reconnectBackoff
	pending := newDebouncer(ctx, debounce, recompute)

	for {
		err := listenLoop(ctx, dbURL, pending, logger)
		if ctx.Err() != nil {
			logger.Info("Score listener stopped (context cancelled)")
			return
		}

		logger.Error("Score listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, pending *debouncer, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Score listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		season, err := strconv.Atoi(notification.Payload)
		if err != nil {
			logger.Warn("Ignoring malformed scores_loaded payload",
				"payload", notification.Payload)
			continue
		}

		logger.Info("Scores loaded, scheduling recompute", "season", season)
		pending.schedule(season)
	}
}

// debouncer delays a season's recompute until notifications stop arriving.
type debouncer struct {
	ctx       context.Context
	delay     time.Duration
	recompute RecomputeFunc
	resets    chan int
}

func newDebouncer(ctx context.Context, delay time.Duration, recompute RecomputeFunc) *debouncer {
	d := &debouncer{
		ctx:       ctx,
		delay:     delay,
		recompute: recompute,
		resets:    make(chan int, 16),
	}
	go d.run()
	return d
}

func (d *debouncer) schedule(season int) {
	select {
	case d.resets <- season:
	case <-d.ctx.Done():
	}
}

func (d *debouncer) run() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[int]bool)
	for {
		select {
		case season := <-d.resets:
			pending[season] = true
			timer.Reset(d.delay)
		case <-timer.C:
			for season := range pending {
				d.recompute(d.ctx, season)
			}
			pending = make(map[int]bool)
		case <-d.ctx.Done():
			return
		}
	}
}
