package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pinleague/pinstats/internal/config"
	"github.com/pinleague/pinstats/internal/model"
)

// --------------------------------------------------------------------------
// Loader upserts — reference entities first, then the immutable corpus
// --------------------------------------------------------------------------

// Match is the persisted match header.
type Match struct {
	Key      string
	Season   int
	Week     int
	VenueKey string
	HomeTeam string
	AwayTeam string
	Date     time.Time
}

// UpsertPlayer writes a player, widening the observed season range. IPR is
// left alone here — only the rating pass updates it.
func (s *Store) UpsertPlayer(ctx context.Context, key, name string, season int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.PlayersTable+` (key, name, first_season, last_season)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (key) DO UPDATE SET
			name = EXCLUDED.name,
			first_season = LEAST(`+config.PlayersTable+`.first_season, EXCLUDED.first_season),
			last_season = GREATEST(`+config.PlayersTable+`.last_season, EXCLUDED.last_season),
			updated_at = NOW()`,
		key, name, season,
	)
	return err
}

// MergePlayers folds a duplicate identity key into the canonical one. Scores
// are repointed; the duplicate row stays behind as an alias marker so future
// loads keep resolving it. Players are never deleted.
func (s *Store) MergePlayers(ctx context.Context, canonicalKey, duplicateKey string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE `+config.ScoresTable+` SET player_key = $1 WHERE player_key = $2`,
		canonicalKey, duplicateKey); err != nil {
		return fmt.Errorf("repoint scores %q -> %q: %w", duplicateKey, canonicalKey, err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE `+config.PlayersTable+`
		SET merged_into = $1, updated_at = NOW() WHERE key = $2`,
		canonicalKey, duplicateKey); err != nil {
		return fmt.Errorf("mark player %q merged: %w", duplicateKey, err)
	}
	return tx.Commit(ctx)
}

// UpsertTeam writes a team.
func (s *Store) UpsertTeam(ctx context.Context, key, name string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.TeamsTable+` (key, name) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()`,
		key, name,
	)
	return err
}

// UpsertVenue writes a venue.
func (s *Store) UpsertVenue(ctx context.Context, key, name string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.VenuesTable+` (key, name) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()`,
		key, name,
	)
	return err
}

// UpsertMachine writes a canonical machine.
func (s *Store) UpsertMachine(ctx context.Context, key, name string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.MachinesTable+` (key, name) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()`,
		key, name,
	)
	return err
}

// UpsertVenueMachine adds a machine to a venue's pool for a season.
func (s *Store) UpsertVenueMachine(ctx context.Context, venueKey, machineKey string, season int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.VenueMachinesTable+` (venue_key, machine_key, season)
		VALUES ($1, $2, $3)
		ON CONFLICT (venue_key, machine_key, season) DO NOTHING`,
		venueKey, machineKey, season,
	)
	return err
}

// UpsertMatch writes a match header and returns its row ID.
func (s *Store) UpsertMatch(ctx context.Context, m Match) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO `+config.MatchesTable+` (key, season, week, venue_key, home_team, away_team, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (key) DO UPDATE SET
			venue_key = EXCLUDED.venue_key,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			date = EXCLUDED.date,
			updated_at = NOW()
		RETURNING id`,
		m.Key, m.Season, m.Week, m.VenueKey, m.HomeTeam, m.AwayTeam, m.Date,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert match %q: %w", m.Key, err)
	}
	return id, nil
}

// UpsertGame writes one round of a match and returns its row ID. The done
// flag may flip false -> true on a later load; scores stay immutable.
func (s *Store) UpsertGame(ctx context.Context, matchID int64, round int, machineKey string, done bool) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO `+config.GamesTable+` (match_id, round, machine_key, done)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id, round) DO UPDATE SET
			machine_key = EXCLUDED.machine_key,
			done = EXCLUDED.done,
			updated_at = NOW()
		RETURNING id`,
		matchID, round, machineKey, done,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert game match=%d round=%d: %w", matchID, round, err)
	}
	return id, nil
}

// InsertScore writes one immutable score fact. Re-loads of the same match
// are no-ops: (game, player, position) identifies the fact and conflicting
// inserts are ignored, never updated.
func (s *Store) InsertScore(ctx context.Context, gameID int64, r model.ScoreRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.ScoresTable+` (
			game_id, player_key, position, score, team_key,
			is_home_team, ipr_snapshot, season, is_substitute
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (game_id, player_key, position) DO NOTHING`,
		gameID, r.PlayerKey, r.PlayerPosition, r.Score, r.TeamKey,
		r.IsHomeTeam, r.PlayerIPR, r.Season, r.IsSubstitute,
	)
	return err
}

// --------------------------------------------------------------------------
// Pipeline writes — full-scope replacement inside one transaction
// --------------------------------------------------------------------------

// ReplaceSeasonAggregates clears and rewrites every derived aggregate row
// for one season. The delete and all inserts share a transaction so readers
// only ever see the previous or the new snapshot.
func (s *Store) ReplaceSeasonAggregates(
	ctx context.Context,
	season int,
	thresholds []model.PercentileThreshold,
	playerRows, teamRows []model.StatRow,
) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin season %d replace: %w", season, err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{config.ThresholdsTable, config.PlayerMachineTable, config.TeamMachineTable} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE season = $1`, season); err != nil {
			return fmt.Errorf("clear %s season %d: %w", table, season, err)
		}
	}

	for _, t := range thresholds {
		if _, err := tx.Exec(ctx, `
			INSERT INTO `+config.ThresholdsTable+` (machine_key, venue_key, season, percentile, score)
			VALUES ($1, $2, $3, $4, $5)`,
			t.MachineKey, t.VenueKey, t.Season, t.Percentile, t.Score); err != nil {
			return fmt.Errorf("insert threshold %s p%d: %w", t.MachineKey, t.Percentile, err)
		}
	}

	if err := insertStatRows(ctx, tx, config.PlayerMachineTable, "player_key", playerRows); err != nil {
		return err
	}
	if err := insertStatRows(ctx, tx, config.TeamMachineTable, "team_key", teamRows); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertStatRows(ctx context.Context, tx pgx.Tx, table, entityCol string, rows []model.StatRow) error {
	for _, r := range rows {
		if _, err := tx.Exec(ctx, `
			INSERT INTO `+table+` (
				`+entityCol+`, machine_key, venue_key, season, games_played,
				median_score, avg_score, best_score, worst_score, win_pct,
				avg_percentile, median_percentile
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			r.EntityKey, r.MachineKey, r.VenueKey, r.Season, r.GamesPlayed,
			r.MedianScore, r.AvgScore, r.BestScore, r.WorstScore, r.WinPercentage,
			r.AvgPercentile, r.MedianPercentile); err != nil {
			return fmt.Errorf("insert %s row %s/%s: %w", table, r.EntityKey, r.MachineKey, err)
		}
	}
	return nil
}

// ReplaceSeasonRatings rewrites a season's rating rows and refreshes each
// player's IPR tier in the same transaction.
func (s *Store) ReplaceSeasonRatings(ctx context.Context, season int, ratings []model.PlayerRating, tiers map[string]int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin season %d ratings: %w", season, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM `+config.PlayerRatingsTable+` WHERE season = $1`, season); err != nil {
		return fmt.Errorf("clear ratings season %d: %w", season, err)
	}

	for _, r := range ratings {
		if _, err := tx.Exec(ctx, `
			INSERT INTO `+config.PlayerRatingsTable+` (player_key, rating, rd, season, week)
			VALUES ($1, $2, $3, $4, $5)`,
			r.PlayerKey, r.Rating, r.RD, r.Season, r.Week); err != nil {
			return fmt.Errorf("insert rating %q: %w", r.PlayerKey, err)
		}
	}

	for playerKey, tier := range tiers {
		if _, err := tx.Exec(ctx, `
			UPDATE `+config.PlayersTable+` SET ipr = $1, updated_at = NOW() WHERE key = $2`,
			tier, playerKey); err != nil {
			return fmt.Errorf("update IPR %q: %w", playerKey, err)
		}
	}

	return tx.Commit(ctx)
}
