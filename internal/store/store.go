// Package store is the persistence layer over Postgres. It owns the four
// derived tables (percentile thresholds, player/team machine stats, player
// ratings) plus the raw match/game/score corpus, and exposes read accessors
// for the serving layer.
//
// Aggregate writes are scope-replacing: a pipeline pass deletes a season's
// rows and inserts the recomputed set inside one transaction, so readers
// never observe a partially-cleared table and re-runs are idempotent.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pinleague/pinstats/internal/db"
	"github.com/pinleague/pinstats/internal/matchup"
	"github.com/pinleague/pinstats/internal/model"
)

// Store wraps the connection pool with typed accessors.
type Store struct {
	pool *db.Pool
}

// New creates a Store.
func New(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// --------------------------------------------------------------------------
// Players
// --------------------------------------------------------------------------

// PlayerByKey returns one player, or model.ErrUnknownReference if absent.
func (s *Store) PlayerByKey(ctx context.Context, key string) (*model.Player, error) {
	var p model.Player
	err := s.pool.QueryRow(ctx, "player_lookup", key).Scan(
		&p.Key, &p.Name, &p.IPR, &p.FirstSeason, &p.LastSeason)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: player %q", model.ErrUnknownReference, key)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup player %q: %w", key, err)
	}
	return &p, nil
}

// TeamRoster returns the non-substitute players who appeared for a team in
// the given seasons.
func (s *Store) TeamRoster(ctx context.Context, teamKey string, seasons []int) ([]string, error) {
	rows, err := s.pool.Query(ctx, "team_roster", teamKey, seasons)
	if err != nil {
		return nil, fmt.Errorf("team roster %q: %w", teamKey, err)
	}
	defer rows.Close()

	var roster []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		roster = append(roster, key)
	}
	return roster, rows.Err()
}

// --------------------------------------------------------------------------
// Registry reads
// --------------------------------------------------------------------------

// VenueMachines returns the current machine pool at a venue for a season.
func (s *Store) VenueMachines(ctx context.Context, venueKey string, season int) ([]string, error) {
	rows, err := s.pool.Query(ctx, "venue_machines", venueKey, season)
	if err != nil {
		return nil, fmt.Errorf("venue machines %q: %w", venueKey, err)
	}
	defer rows.Close()

	var machines []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan machine row: %w", err)
		}
		machines = append(machines, key)
	}
	return machines, rows.Err()
}

// ResolveMachineAlias maps a machine alias to its canonical key. Unknown
// aliases return ErrUnknownReference.
func (s *Store) ResolveMachineAlias(ctx context.Context, alias string) (string, error) {
	var canonical string
	err := s.pool.QueryRow(ctx, "machine_alias", alias).Scan(&canonical)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: machine alias %q", model.ErrUnknownReference, alias)
	}
	if err != nil {
		return "", fmt.Errorf("resolve machine alias %q: %w", alias, err)
	}
	return canonical, nil
}

// KnownMachine reports whether a canonical machine key exists.
func (s *Store) KnownMachine(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, "machine_known", key).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check machine %q: %w", key, err)
	}
	return true, nil
}

// --------------------------------------------------------------------------
// Derived table reads
// --------------------------------------------------------------------------

// ThresholdsForScope returns the persisted percentile thresholds for an
// exact (machine, venue, season) scope, ascending by percentile point. An
// empty slice means no population existed for that scope.
func (s *Store) ThresholdsForScope(ctx context.Context, machineKey string, venueKey *string, season int) ([]model.PercentileThreshold, error) {
	rows, err := s.pool.Query(ctx, "thresholds_for_scope", machineKey, venueKey, season)
	if err != nil {
		return nil, fmt.Errorf("thresholds %q: %w", machineKey, err)
	}
	defer rows.Close()

	var out []model.PercentileThreshold
	for rows.Next() {
		var t model.PercentileThreshold
		if err := rows.Scan(&t.MachineKey, &t.VenueKey, &t.Season, &t.Percentile, &t.Score); err != nil {
			return nil, fmt.Errorf("scan threshold row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PlayerMachineStats returns a player's per-season machine StatRows. A nil
// venueKey selects the league-wide rows.
func (s *Store) PlayerMachineStats(ctx context.Context, playerKey string, seasons []int, venueKey *string) ([]model.StatRow, error) {
	return s.statRows(ctx, "player_machine_stats", playerKey, seasons, venueKey)
}

// TeamMachineStats returns a team's per-season machine StatRows. A nil
// venueKey selects the league-wide rows.
func (s *Store) TeamMachineStats(ctx context.Context, teamKey string, seasons []int, venueKey *string) ([]model.StatRow, error) {
	return s.statRows(ctx, "team_machine_stats", teamKey, seasons, venueKey)
}

func (s *Store) statRows(ctx context.Context, stmt, entityKey string, seasons []int, venueKey *string) ([]model.StatRow, error) {
	rows, err := s.pool.Query(ctx, stmt, entityKey, seasons, venueKey)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", stmt, entityKey, err)
	}
	defer rows.Close()
	return scanStatRows(rows)
}

// RosterMachineStats returns venue-scoped StatRows for a set of players,
// feeding the matchup predictor.
func (s *Store) RosterMachineStats(ctx context.Context, playerKeys []string, venueKey *string, seasons []int) ([]model.StatRow, error) {
	rows, err := s.pool.Query(ctx, "roster_machine_stats", playerKeys, venueKey, seasons)
	if err != nil {
		return nil, fmt.Errorf("roster machine stats: %w", err)
	}
	defer rows.Close()
	return scanStatRows(rows)
}

func scanStatRows(rows pgx.Rows) ([]model.StatRow, error) {
	var out []model.StatRow
	for rows.Next() {
		var r model.StatRow
		if err := rows.Scan(
			&r.EntityKey, &r.MachineKey, &r.VenueKey, &r.Season,
			&r.GamesPlayed, &r.MedianScore, &r.AvgScore,
			&r.BestScore, &r.WorstScore, &r.WinPercentage,
			&r.AvgPercentile, &r.MedianPercentile,
		); err != nil {
			return nil, fmt.Errorf("scan stat row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PlayerRating returns a player's current Glicko state — the row from the
// latest replayed (season, week) period — or ErrUnknownReference if the
// player has never been rated.
func (s *Store) PlayerRating(ctx context.Context, playerKey string) (*model.PlayerRating, error) {
	var r model.PlayerRating
	err := s.pool.QueryRow(ctx, "player_rating", playerKey).Scan(
		&r.PlayerKey, &r.Rating, &r.RD, &r.Season, &r.Week)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: rating for player %q", model.ErrUnknownReference, playerKey)
	}
	if err != nil {
		return nil, fmt.Errorf("player rating %q: %w", playerKey, err)
	}
	return &r, nil
}

// --------------------------------------------------------------------------
// Corpus reads
// --------------------------------------------------------------------------

// SeasonScores streams a season's full score corpus (done and not-done;
// the aggregator applies the done gate).
func (s *Store) SeasonScores(ctx context.Context, season int) ([]model.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx, "season_scores", season)
	if err != nil {
		return nil, fmt.Errorf("season %d scores: %w", season, err)
	}
	defer rows.Close()

	var out []model.ScoreRecord
	for rows.Next() {
		var r model.ScoreRecord
		if err := rows.Scan(
			&r.GameID, &r.PlayerKey, &r.PlayerPosition, &r.Score, &r.TeamKey,
			&r.IsHomeTeam, &r.PlayerIPR, &r.MachineKey, &r.VenueKey,
			&r.RoundNumber, &r.Season, &r.Week, &r.Date, &r.Done, &r.IsSubstitute,
		); err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// NotifyScoresLoaded fires the scores_loaded Postgres notification after a
// load commits, so a running API process can schedule a recompute for the
// season (see internal/listener).
func (s *Store) NotifyScoresLoaded(ctx context.Context, season int) error {
	if _, err := s.pool.Exec(ctx, `SELECT pg_notify('scores_loaded', $1::text)`, fmt.Sprintf("%d", season)); err != nil {
		return fmt.Errorf("notify scores_loaded: %w", err)
	}
	return nil
}

// PickEvents derives machine-pick history for a venue: for every done game,
// the picking team is the away team in rounds 1 and 3 and the home team in
// rounds 2 and 4.
func (s *Store) PickEvents(ctx context.Context, venueKey string, seasons []int) ([]matchup.PickEvent, error) {
	rows, err := s.pool.Query(ctx, "season_picks", venueKey, seasons)
	if err != nil {
		return nil, fmt.Errorf("pick events %q: %w", venueKey, err)
	}
	defer rows.Close()

	var out []matchup.PickEvent
	for rows.Next() {
		var (
			machineKey         string
			round              int
			date               time.Time
			homeTeam, awayTeam string
		)
		if err := rows.Scan(&machineKey, &round, &date, &homeTeam, &awayTeam); err != nil {
			return nil, fmt.Errorf("scan pick row: %w", err)
		}
		picker := homeTeam
		if model.AwayPicksRound(round) {
			picker = awayTeam
		}
		out = append(out, matchup.PickEvent{TeamKey: picker, MachineKey: machineKey, Date: date})
	}
	return out, rows.Err()
}
