// Package loader ingests league match-result JSON into the relational
// corpus. It is the validation boundary: records are strongly typed and
// checked here, so malformed data is rejected at the edge and never reaches
// aggregation. Machine names are canonicalized through the registry before
// anything is written.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pinleague/pinstats/internal/model"
	"github.com/pinleague/pinstats/internal/registry"
	"github.com/pinleague/pinstats/internal/store"
)

// --------------------------------------------------------------------------
// Wire format
// --------------------------------------------------------------------------

// MatchJSON is one match in a results file.
type MatchJSON struct {
	Key      string     `json:"key"`
	Season   int        `json:"season"`
	Week     int        `json:"week"`
	Date     string     `json:"date"` // YYYY-MM-DD
	Venue    EntityJSON `json:"venue"`
	HomeTeam EntityJSON `json:"home_team"`
	AwayTeam EntityJSON `json:"away_team"`
	Games    []GameJSON `json:"games"`
}

// EntityJSON is a keyed, named reference (venue, team).
type EntityJSON struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// GameJSON is one round of a match.
type GameJSON struct {
	Round   int         `json:"round"`
	Machine string      `json:"machine"` // name or alias; canonicalized at load
	Done    bool        `json:"done"`
	Scores  []ScoreJSON `json:"scores"`
}

// ScoreJSON is one player's result in a game.
type ScoreJSON struct {
	Player     EntityJSON `json:"player"`
	Position   int        `json:"position"`
	Score      int64      `json:"score"`
	Team       string     `json:"team"`
	IPR        *int       `json:"ipr"`
	Substitute bool       `json:"substitute"`
}

// --------------------------------------------------------------------------
// Result accumulator
// --------------------------------------------------------------------------

// Result tracks counts and errors from a load. Seasons lists every season a
// loaded match touched, so the caller knows which recomputes to trigger.
type Result struct {
	MatchesLoaded   int
	GamesLoaded     int
	ScoresLoaded    int
	PlayersUpserted int // distinct players, not score rows
	Skipped         int
	Seasons         []int
	Errors          []string

	players map[string]bool
}

// addPlayer counts a player once no matter how many of their score rows the
// load touches.
func (r *Result) addPlayer(key string) {
	if r.players == nil {
		r.players = make(map[string]bool)
	}
	if !r.players[key] {
		r.players[key] = true
		r.PlayersUpserted++
	}
}

func (r *Result) addSeason(season int) {
	for _, s := range r.Seasons {
		if s == season {
			return
		}
	}
	r.Seasons = append(r.Seasons, season)
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the load.
func (r *Result) Summary() string {
	return fmt.Sprintf("matches=%d games=%d scores=%d players=%d skipped=%d errors=%d",
		r.MatchesLoaded, r.GamesLoaded, r.ScoresLoaded,
		r.PlayersUpserted, r.Skipped, len(r.Errors))
}

// --------------------------------------------------------------------------
// Loader
// --------------------------------------------------------------------------

// Loader parses and persists match files.
type Loader struct {
	Store    *store.Store
	Registry *registry.Registry
	Logger   *slog.Logger
}

// LoadFile reads a JSON array of matches and persists them. Invalid matches
// are skipped with recorded errors — a bad match never aborts the file.
func (l *Loader) LoadFile(ctx context.Context, path string) Result {
	var result Result

	raw, err := os.ReadFile(path)
	if err != nil {
		result.AddErrorf("read %s: %v", path, err)
		return result
	}

	var matches []MatchJSON
	if err := json.Unmarshal(raw, &matches); err != nil {
		result.AddErrorf("parse %s: %v", path, err)
		return result
	}

	l.Logger.Info("Loading match file", "path", path, "matches", len(matches))
	for _, m := range matches {
		l.loadMatch(ctx, m, &result)
	}
	l.Logger.Info("Match file loaded", "path", path, "summary", result.Summary())
	return result
}

func (l *Loader) loadMatch(ctx context.Context, m MatchJSON, result *Result) {
	date, err := validateMatch(m)
	if err != nil {
		result.Skipped++
		result.AddErrorf("match %q: %v", m.Key, err)
		return
	}

	if err := l.Store.UpsertVenue(ctx, m.Venue.Key, m.Venue.Name); err != nil {
		result.AddErrorf("match %q: upsert venue: %v", m.Key, err)
		return
	}
	for _, team := range []EntityJSON{m.HomeTeam, m.AwayTeam} {
		if err := l.Store.UpsertTeam(ctx, team.Key, team.Name); err != nil {
			result.AddErrorf("match %q: upsert team %q: %v", m.Key, team.Key, err)
			return
		}
	}

	matchID, err := l.Store.UpsertMatch(ctx, store.Match{
		Key:      m.Key,
		Season:   m.Season,
		Week:     m.Week,
		VenueKey: m.Venue.Key,
		HomeTeam: m.HomeTeam.Key,
		AwayTeam: m.AwayTeam.Key,
		Date:     date,
	})
	if err != nil {
		result.AddErrorf("match %q: %v", m.Key, err)
		return
	}

	for _, g := range m.Games {
		machineKey, err := l.canonicalMachine(ctx, g.Machine, m.Venue.Key, m.Season)
		if err != nil {
			result.Skipped++
			result.AddErrorf("match %q round %d: %v", m.Key, g.Round, err)
			continue
		}

		gameID, err := l.Store.UpsertGame(ctx, matchID, g.Round, machineKey, g.Done)
		if err != nil {
			result.AddErrorf("match %q round %d: %v", m.Key, g.Round, err)
			continue
		}
		result.GamesLoaded++

		for _, sc := range g.Scores {
			if err := l.Store.UpsertPlayer(ctx, sc.Player.Key, sc.Player.Name, m.Season); err != nil {
				result.AddErrorf("match %q: upsert player %q: %v", m.Key, sc.Player.Key, err)
				continue
			}
			result.addPlayer(sc.Player.Key)

			rec := model.ScoreRecord{
				PlayerKey:      sc.Player.Key,
				PlayerPosition: sc.Position,
				Score:          sc.Score,
				TeamKey:        sc.Team,
				IsHomeTeam:     sc.Team == m.HomeTeam.Key,
				PlayerIPR:      sc.IPR,
				Season:         m.Season,
				IsSubstitute:   sc.Substitute,
			}
			if err := l.Store.InsertScore(ctx, gameID, rec); err != nil {
				result.AddErrorf("match %q: insert score %q: %v", m.Key, sc.Player.Key, err)
				continue
			}
			result.ScoresLoaded++
		}
	}

	result.MatchesLoaded++
	result.addSeason(m.Season)
}

// canonicalMachine resolves a machine name through the registry, creating
// the canonical machine (and its venue-pool row) on first sight. A league
// data feed is the source of truth for machines, so unknown names seed the
// registry rather than failing the load.
func (l *Loader) canonicalMachine(ctx context.Context, name, venueKey string, season int) (string, error) {
	key, err := l.Registry.Canonical(name)
	if err != nil {
		key = slugify(name)
		if key == "" {
			return "", fmt.Errorf("%w: unusable machine name %q", model.ErrInvalidInput, name)
		}
		if err := l.Store.UpsertMachine(ctx, key, name); err != nil {
			return "", fmt.Errorf("create machine %q: %w", key, err)
		}
		l.Registry.AddMachine(key)
		l.Logger.Info("Registered new machine", "key", key, "name", name)
	}

	if err := l.Store.UpsertVenueMachine(ctx, venueKey, key, season); err != nil {
		return "", fmt.Errorf("venue pool %q += %q: %w", venueKey, key, err)
	}
	return key, nil
}

// --------------------------------------------------------------------------
// Validation
// --------------------------------------------------------------------------

// validateMatch enforces the structural rules at the edge: 4 rounds max,
// valid round/position numbers, non-negative scores, correct score counts
// for done games (4-player rounds 1 & 4, head-to-head rounds 2 & 3), and
// scores attributed to one of the match's two teams.
func validateMatch(m MatchJSON) (time.Time, error) {
	if m.Key == "" || m.Venue.Key == "" || m.HomeTeam.Key == "" || m.AwayTeam.Key == "" {
		return time.Time{}, fmt.Errorf("%w: missing match/venue/team key", model.ErrInvalidInput)
	}
	if m.Season <= 0 || m.Week <= 0 {
		return time.Time{}, fmt.Errorf("%w: season and week must be positive", model.ErrInvalidInput)
	}
	date, err := time.Parse("2006-01-02", m.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", model.ErrInvalidInput, m.Date)
	}
	if len(m.Games) > model.RoundsPerMatch {
		return time.Time{}, fmt.Errorf("%w: %d games, max %d", model.ErrInvalidInput, len(m.Games), model.RoundsPerMatch)
	}

	seenRound := make(map[int]bool)
	for _, g := range m.Games {
		if g.Round < 1 || g.Round > model.RoundsPerMatch {
			return time.Time{}, fmt.Errorf("%w: round %d out of range", model.ErrInvalidInput, g.Round)
		}
		if seenRound[g.Round] {
			return time.Time{}, fmt.Errorf("%w: duplicate round %d", model.ErrInvalidInput, g.Round)
		}
		seenRound[g.Round] = true

		if g.Done && len(g.Scores) != model.PlayersInRound(g.Round) {
			return time.Time{}, fmt.Errorf("%w: round %d done with %d scores, want %d",
				model.ErrInvalidInput, g.Round, len(g.Scores), model.PlayersInRound(g.Round))
		}

		seenPos := make(map[int]bool)
		for _, sc := range g.Scores {
			if sc.Player.Key == "" {
				return time.Time{}, fmt.Errorf("%w: round %d has a score without a player key", model.ErrInvalidInput, g.Round)
			}
			if sc.Position < 1 || sc.Position > model.MaxPosition {
				return time.Time{}, fmt.Errorf("%w: round %d position %d out of range", model.ErrInvalidInput, g.Round, sc.Position)
			}
			if seenPos[sc.Position] {
				return time.Time{}, fmt.Errorf("%w: round %d duplicate position %d", model.ErrInvalidInput, g.Round, sc.Position)
			}
			seenPos[sc.Position] = true
			if sc.Score < 0 {
				return time.Time{}, fmt.Errorf("%w: round %d negative score", model.ErrInvalidInput, g.Round)
			}
			if sc.Team != m.HomeTeam.Key && sc.Team != m.AwayTeam.Key {
				return time.Time{}, fmt.Errorf("%w: round %d score for team %q not in match", model.ErrInvalidInput, g.Round, sc.Team)
			}
		}
	}
	return date, nil
}

// slugify lowercases a machine name into a canonical key.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
