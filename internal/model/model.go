// Package model defines the core data contracts shared by the loader, the
// aggregation pipeline, the store, and the API layer. Everything downstream
// of the loader works in terms of these types — raw match JSON never crosses
// the loader boundary.
package model

import "time"

// --------------------------------------------------------------------------
// Match structure constants
// --------------------------------------------------------------------------

const (
	// RoundsPerMatch is fixed by league format: every match is 4 games.
	RoundsPerMatch = 4

	// Positions run 1..4. Rounds 1 and 4 are 4-player groups, rounds 2 and 3
	// are head-to-head.
	MaxPosition = 4
)

// PlayersInRound returns the number of scores a done game in the given round
// must carry (4 for group rounds, 2 for singles rounds).
func PlayersInRound(round int) int {
	if round == 1 || round == 4 {
		return 4
	}
	return 2
}

// AwayPicksRound reports whether the away team holds machine-selection rights
// for the given round. Away picks rounds 1 and 3, home picks 2 and 4.
func AwayPicksRound(round int) bool {
	return round == 1 || round == 3
}

// --------------------------------------------------------------------------
// Score corpus
// --------------------------------------------------------------------------

// ScoreRecord is one player's result in one game — the sole input contract
// of the aggregation core. Records are immutable facts; the loader validates
// them at the ingestion boundary and aggregation never mutates them.
type ScoreRecord struct {
	GameID         int64
	PlayerKey      string
	PlayerPosition int // 1-4
	Score          int64
	TeamKey        string
	IsHomeTeam     bool
	PlayerIPR      *int // IPR tier snapshot at play time, nil if unrated
	MachineKey     string
	VenueKey       string
	RoundNumber    int // 1-4
	Season         int
	Week           int
	Date           time.Time
	Done           bool
	IsSubstitute   bool
}

// --------------------------------------------------------------------------
// Derived aggregates
// --------------------------------------------------------------------------

// StatRow is one (entity, machine) aggregate for a scope. Entity is a player
// key or a team key depending on aggregation mode. Venue and Season are nil
// when the row spans all venues / multiple seasons.
type StatRow struct {
	EntityKey  string  `json:"entity_key"`
	MachineKey string  `json:"machine_key"`
	VenueKey   *string `json:"venue_key,omitempty"`
	Season     *int    `json:"season,omitempty"`

	GamesPlayed   int     `json:"games_played"`
	MedianScore   float64 `json:"median_score"`
	AvgScore      float64 `json:"avg_score"`
	BestScore     int64   `json:"best_score"`
	WorstScore    int64   `json:"worst_score"`
	WinPercentage float64 `json:"win_pct"` // 0-100

	// Percentile fields are nil when no threshold table exists for the exact
	// (machine, venue, season) scope. Missing data stays visible — it is
	// never estimated from a neighboring scope.
	AvgPercentile    *float64 `json:"avg_percentile,omitempty"`
	MedianPercentile *float64 `json:"median_percentile,omitempty"`

	// ApproxMedian marks rows whose median was merged from per-season
	// aggregates rather than computed from raw scores.
	ApproxMedian bool `json:"approx_median,omitempty"`
}

// PercentileThreshold maps one percentile point to a score value for a
// (machine, optional venue, season) population.
type PercentileThreshold struct {
	MachineKey string
	VenueKey   *string
	Season     int
	Percentile int
	Score      int64
}

// --------------------------------------------------------------------------
// Players and ratings
// --------------------------------------------------------------------------

// Player is a league member. IPR is nil until the player has enough rated
// games. Players are never deleted; duplicate identity keys are merged into
// the canonical key at load time.
type Player struct {
	Key         string
	Name        string
	IPR         *int // 1-6
	FirstSeason int
	LastSeason  int
}

// PlayerRating is the league-local Glicko-1 state for a player.
type PlayerRating struct {
	PlayerKey string
	Rating    float64
	RD        float64
	Season    int
	Week      int // last rating period applied
}

// --------------------------------------------------------------------------
// Matchup analysis
// --------------------------------------------------------------------------

// TeamMachineOutlook is one team's predicted performance on one machine.
// When the roster sample on the machine is below the minimum, Insufficient
// is true and the interval fields are zero — callers must not render them.
type TeamMachineOutlook struct {
	TeamKey      string  `json:"team_key"`
	MachineKey   string  `json:"machine_key"`
	GamesPlayed  int     `json:"games_played"`
	MeanScore    float64 `json:"mean_score"`
	IntervalLow  float64 `json:"interval_low"`
	IntervalHigh float64 `json:"interval_high"`
	Insufficient bool    `json:"insufficient"`
}

// MachinePick records how often a team chose a machine when it held
// selection rights.
type MachinePick struct {
	MachineKey  string    `json:"machine_key"`
	TimesPicked int       `json:"times_picked"`
	LastPicked  time.Time `json:"last_picked"`
}

// PlayerPreference lists a player's strongest machines, best first.
type PlayerPreference struct {
	PlayerKey string   `json:"player_key"`
	Machines  []string `json:"machines"`
}

// MatchupAnalysis is the full pre-match scouting report for two teams at a
// venue. Interval math is a normal approximation on skewed score
// distributions; treat the bounds as indicative, not exact.
type MatchupAnalysis struct {
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	VenueKey string `json:"venue_key"`
	Seasons  []int  `json:"seasons"`

	Machines []string `json:"machines"` // current machine pool at the venue

	HomeOutlooks []TeamMachineOutlook `json:"home_outlooks"`
	AwayOutlooks []TeamMachineOutlook `json:"away_outlooks"`

	HomePicks []MachinePick `json:"home_picks"`
	AwayPicks []MachinePick `json:"away_picks"`

	HomePreferences []PlayerPreference `json:"home_preferences"`
	AwayPreferences []PlayerPreference `json:"away_preferences"`
}
