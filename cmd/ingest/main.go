// Command ingest is the Pinstats data ingestion CLI.
//
// Usage:
//
//	pinstats-ingest load matches/week3.json matches/week4.json
//	pinstats-ingest pipeline --seasons 21,22 --workers 2
//	pinstats-ingest ratings --seasons 20,21,22
//	pinstats-ingest merge-player --into alice-b --from alice-brown
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pinleague/pinstats/internal/config"
	"github.com/pinleague/pinstats/internal/db"
	"github.com/pinleague/pinstats/internal/loader"
	"github.com/pinleague/pinstats/internal/pipeline"
	"github.com/pinleague/pinstats/internal/registry"
	"github.com/pinleague/pinstats/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "pinstats-ingest",
		Short: "Pinstats data ingestion CLI",
	}

	root.AddCommand(loadCmd())
	root.AddCommand(pipelineCmd())
	root.AddCommand(ratingsCmd())
	root.AddCommand(mergePlayerCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// load command
// --------------------------------------------------------------------------

func loadCmd() *cobra.Command {
	var noNotify bool
	cmd := &cobra.Command{
		Use:   "load [files...]",
		Short: "Load match JSON files into the corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				st := store.New(pool)
				reg, err := registry.Load(ctx, pool)
				if err != nil {
					return fmt.Errorf("load machine registry: %w", err)
				}
				l := &loader.Loader{Store: st, Registry: reg, Logger: logger}

				start := time.Now()
				var total loader.Result
				seasons := map[int]bool{}
				for _, path := range args {
					result := l.LoadFile(ctx, path)
					total.MatchesLoaded += result.MatchesLoaded
					total.GamesLoaded += result.GamesLoaded
					total.ScoresLoaded += result.ScoresLoaded
					total.PlayersUpserted += result.PlayersUpserted
					total.Skipped += result.Skipped
					total.Errors = append(total.Errors, result.Errors...)
					for _, s := range result.Seasons {
						seasons[s] = true
					}
				}
				logger.Info("Load finished",
					"files", len(args),
					"duration", time.Since(start).Round(time.Second),
					"summary", total.Summary())
				for _, e := range total.Errors {
					logger.Error("load error", "error", e)
				}

				if !noNotify {
					for season := range seasons {
						if err := st.NotifyScoresLoaded(ctx, season); err != nil {
							logger.Error("notify failed", "season", season, "error", err)
						}
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "Skip the scores_loaded notification after loading")
	return cmd
}

// --------------------------------------------------------------------------
// pipeline command
// --------------------------------------------------------------------------

func pipelineCmd() *cobra.Command {
	var seasons []int
	var workers int
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Recompute percentile thresholds and machine stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				orch, err := buildOrchestrator(ctx, pool, cfg)
				if err != nil {
					return err
				}
				if len(seasons) == 0 {
					seasons = []int{cfg.CurrentSeason}
				}
				if workers == 0 {
					workers = cfg.PipelineWorkers
				}

				start := time.Now()
				result := orch.Run(ctx, seasons, workers)
				logger.Info("Pipeline finished",
					"seasons", seasons, "workers", workers,
					"duration", time.Since(start).Round(time.Second),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("pipeline error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntSliceVar(&seasons, "seasons", nil, "Seasons to recompute (default: current)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent season passes (default: PIPELINE_WORKERS)")
	return cmd
}

// --------------------------------------------------------------------------
// ratings command
// --------------------------------------------------------------------------

func ratingsCmd() *cobra.Command {
	var seasons []int
	cmd := &cobra.Command{
		Use:   "ratings",
		Short: "Replay rating periods and rewrite Glicko ratings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				orch, err := buildOrchestrator(ctx, pool, cfg)
				if err != nil {
					return err
				}
				if len(seasons) == 0 {
					seasons = []int{cfg.CurrentSeason}
				}

				start := time.Now()
				result := orch.RunRatings(ctx, seasons)
				logger.Info("Ratings finished",
					"seasons", seasons,
					"duration", time.Since(start).Round(time.Second),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("ratings error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntSliceVar(&seasons, "seasons", nil, "Seasons to replay in order (default: current)")
	return cmd
}

// --------------------------------------------------------------------------
// merge-player command
// --------------------------------------------------------------------------

func mergePlayerCmd() *cobra.Command {
	var into, from string
	cmd := &cobra.Command{
		Use:   "merge-player",
		Short: "Fold a duplicate player key into its canonical key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if into == "" || from == "" {
				return fmt.Errorf("--into and --from are required")
			}
			return runIngest(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				st := store.New(pool)
				if err := st.MergePlayers(ctx, into, from); err != nil {
					return err
				}
				logger.Info("Players merged", "canonical", into, "duplicate", from)
				logger.Info("Re-run the pipeline and ratings for affected seasons to refresh aggregates")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&into, "into", "", "Canonical player key")
	cmd.Flags().StringVar(&from, "from", "", "Duplicate player key to fold in")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

func buildOrchestrator(ctx context.Context, pool *db.Pool, cfg *config.Config) (*pipeline.Orchestrator, error) {
	st := store.New(pool)
	reg, err := registry.Load(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("load machine registry: %w", err)
	}
	return &pipeline.Orchestrator{
		Store:      st,
		Registry:   reg,
		IPRCutoffs: cfg.IPRCutoffs,
		Logger:     logger,
	}, nil
}

// runIngest handles config loading, DB connection, and context cancellation.
func runIngest(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
