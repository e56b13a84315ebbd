// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinleague/pinstats/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers the statements behind the API read
// paths and the pipeline's corpus reads. Prepared statements eliminate parse
// overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range preparedStatements() {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}

func preparedStatements() map[string]string {
	return map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Players
		"player_lookup": `
			SELECT key, name, ipr, first_season, last_season
			FROM ` + config.PlayersTable + ` WHERE key = $1`,
		"team_roster": `
			SELECT DISTINCT player_key FROM ` + config.ScoresTable + `
			WHERE team_key = $1 AND season = ANY($2) AND NOT is_substitute
			ORDER BY player_key`,

		// Registry
		"venue_machines": `
			SELECT machine_key FROM ` + config.VenueMachinesTable + `
			WHERE venue_key = $1 AND season = $2
			ORDER BY machine_key`,
		"machine_alias": `
			SELECT canonical_key FROM ` + config.MachineAliasesTable + `
			WHERE alias = $1`,
		"machine_known": `
			SELECT 1 FROM ` + config.MachinesTable + ` WHERE key = $1`,

		// Derived tables: percentile thresholds
		"thresholds_for_scope": `
			SELECT machine_key, venue_key, season, percentile, score
			FROM ` + config.ThresholdsTable + `
			WHERE machine_key = $1
			  AND venue_key IS NOT DISTINCT FROM $2
			  AND season = $3
			ORDER BY percentile`,

		// Derived tables: player/team machine stats
		"player_machine_stats": `
			SELECT player_key, machine_key, venue_key, season, games_played,
			       median_score, avg_score, best_score, worst_score, win_pct,
			       avg_percentile, median_percentile
			FROM ` + config.PlayerMachineTable + `
			WHERE player_key = $1 AND season = ANY($2)
			  AND venue_key IS NOT DISTINCT FROM $3
			ORDER BY machine_key, season`,
		"team_machine_stats": `
			SELECT team_key, machine_key, venue_key, season, games_played,
			       median_score, avg_score, best_score, worst_score, win_pct,
			       avg_percentile, median_percentile
			FROM ` + config.TeamMachineTable + `
			WHERE team_key = $1 AND season = ANY($2)
			  AND venue_key IS NOT DISTINCT FROM $3
			ORDER BY machine_key, season`,
		"roster_machine_stats": `
			SELECT player_key, machine_key, venue_key, season, games_played,
			       median_score, avg_score, best_score, worst_score, win_pct,
			       avg_percentile, median_percentile
			FROM ` + config.PlayerMachineTable + `
			WHERE player_key = ANY($1)
			  AND venue_key IS NOT DISTINCT FROM $2
			  AND season = ANY($3)
			ORDER BY player_key, machine_key, season`,

		// Ratings. One row per player per replayed season exists; the latest
		// period is the player's current state.
		"player_rating": `
			SELECT player_key, rating, rd, season, week
			FROM ` + config.PlayerRatingsTable + `
			WHERE player_key = $1
			ORDER BY season DESC, week DESC
			LIMIT 1`,

		// Pipeline: corpus reads
		"season_scores": `
			SELECT s.game_id, s.player_key, s.position, s.score, s.team_key,
			       s.is_home_team, s.ipr_snapshot, g.machine_key, m.venue_key,
			       g.round, m.season, m.week, m.date, g.done, s.is_substitute
			FROM ` + config.ScoresTable + ` s
			JOIN ` + config.GamesTable + ` g ON g.id = s.game_id
			JOIN ` + config.MatchesTable + ` m ON m.id = g.match_id
			WHERE m.season = $1
			ORDER BY s.game_id, s.position`,
		"season_picks": `
			SELECT g.machine_key, g.round, m.date, m.home_team, m.away_team
			FROM ` + config.GamesTable + ` g
			JOIN ` + config.MatchesTable + ` m ON m.id = g.match_id
			WHERE m.venue_key = $1 AND m.season = ANY($2) AND g.done
			ORDER BY m.date, g.round`,
	}
}
