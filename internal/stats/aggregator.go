// Package stats batch-computes per-player and per-team machine statistics
// from the immutable score corpus.
//
// Every output row is a pure function of the done-game score population at
// computation time. Runs are idempotent: the same corpus and scope always
// produce the same rows, and the pipeline clears a scope's previously
// written rows before writing — aggregates are never hand-patched or merged
// into stale data.
package stats

import (
	"log/slog"
	"sort"

	"github.com/pinleague/pinstats/internal/model"
	"github.com/pinleague/pinstats/internal/percentile"
)

// Mode selects the aggregation entity.
type Mode int

const (
	ByPlayer Mode = iota
	ByTeam
)

// Scope filters the score corpus before grouping. An empty VenueKey means
// all venues; nil Rounds means all rounds.
type Scope struct {
	Seasons            []int
	VenueKey           string
	Rounds             []int
	ExcludeSubstitutes bool
}

func (s Scope) hasSeason(season int) bool {
	for _, x := range s.Seasons {
		if x == season {
			return true
		}
	}
	return false
}

func (s Scope) hasRound(round int) bool {
	if len(s.Rounds) == 0 {
		return true
	}
	for _, x := range s.Rounds {
		if x == round {
			return true
		}
	}
	return false
}

// PercentileSource supplies the sorted score population backing the
// percentile threshold table for an exact (machine, venue, season) scope.
// ok is false when no table exists for that scope — the aggregator then
// leaves percentile fields nil rather than estimating across scopes.
type PercentileSource interface {
	Population(machineKey, venueKey string, season int) (sorted []int64, ok bool)
}

// Registry answers whether a machine key is known. A nil Registry trusts
// the loader's canonicalization.
type Registry interface {
	KnownMachine(key string) bool
}

// Aggregator computes StatRows. Zero value is usable; Logger defaults to
// slog.Default.
type Aggregator struct {
	Percentiles PercentileSource
	Registry    Registry
	Logger      *slog.Logger
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Aggregate filters records to done games within scope, groups by
// (entity, machine), and computes one StatRow per group. An empty scope
// yields an empty slice, not an error. Records referencing unknown machine
// keys are skipped with a warning — partial data never aborts a run.
//
// Output order is deterministic: entity key, then machine key.
func (a *Aggregator) Aggregate(records []model.ScoreRecord, scope Scope, mode Mode) []model.StatRow {
	filtered := a.filter(records, scope)
	if len(filtered) == 0 {
		return []model.StatRow{}
	}

	// Wins are resolved against all participants of a game, so games are
	// grouped before entity grouping.
	games := make(map[int64][]model.ScoreRecord)
	for _, r := range filtered {
		games[r.GameID] = append(games[r.GameID], r)
	}

	type groupKey struct {
		entity  string
		machine string
		season  int
	}
	type group struct {
		scores  []int64
		gameIDs map[int64]bool
		wins    int
	}
	groups := make(map[groupKey]*group)

	for gameID, parts := range games {
		winner := gameWinner(parts, mode)
		seen := make(map[groupKey]bool)
		for _, r := range parts {
			entity := r.PlayerKey
			if mode == ByTeam {
				entity = r.TeamKey
			}
			key := groupKey{entity, r.MachineKey, r.Season}
			g := groups[key]
			if g == nil {
				g = &group{gameIDs: make(map[int64]bool)}
				groups[key] = g
			}
			g.scores = append(g.scores, r.Score)
			g.gameIDs[gameID] = true
			if winner == entity && !seen[key] {
				g.wins++
				seen[key] = true
			}
		}
	}

	rows := make([]model.StatRow, 0, len(groups))
	for key, g := range groups {
		sort.Slice(g.scores, func(i, j int) bool { return g.scores[i] < g.scores[j] })

		season := key.season
		row := model.StatRow{
			EntityKey:     key.entity,
			MachineKey:    key.machine,
			Season:        &season,
			GamesPlayed:   len(g.gameIDs),
			MedianScore:   medianInt64(g.scores),
			AvgScore:      meanInt64(g.scores),
			BestScore:     g.scores[len(g.scores)-1],
			WorstScore:    g.scores[0],
			WinPercentage: float64(g.wins) / float64(len(g.gameIDs)) * 100,
		}
		// Rows are keyed by scope, not by incidental data: VenueKey is set
		// only when the scope itself was venue-filtered.
		if scope.VenueKey != "" {
			v := scope.VenueKey
			row.VenueKey = &v
		}

		a.fillPercentiles(&row, g.scores, scope.VenueKey, key.season)
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].EntityKey != rows[j].EntityKey {
			return rows[i].EntityKey < rows[j].EntityKey
		}
		if rows[i].MachineKey != rows[j].MachineKey {
			return rows[i].MachineKey < rows[j].MachineKey
		}
		return derefInt(rows[i].Season) < derefInt(rows[j].Season)
	})
	return rows
}

// filter applies the done-game gate and the scope filters, dropping records
// with unknown machine keys.
func (a *Aggregator) filter(records []model.ScoreRecord, scope Scope) []model.ScoreRecord {
	out := make([]model.ScoreRecord, 0, len(records))
	for _, r := range records {
		if !r.Done {
			continue
		}
		if !scope.hasSeason(r.Season) || !scope.hasRound(r.RoundNumber) {
			continue
		}
		if scope.VenueKey != "" && r.VenueKey != scope.VenueKey {
			continue
		}
		if scope.ExcludeSubstitutes && r.IsSubstitute {
			continue
		}
		if a.Registry != nil && !a.Registry.KnownMachine(r.MachineKey) {
			a.logger().Warn("Skipping score with unknown machine key",
				"machine", r.MachineKey, "game_id", r.GameID, "player", r.PlayerKey)
			continue
		}
		out = append(out, r)
	}
	return out
}

// fillPercentiles looks up each group score against the exact-scope
// population. No population for the scope means the fields stay nil.
func (a *Aggregator) fillPercentiles(row *model.StatRow, sortedScores []int64, venueKey string, season int) {
	if a.Percentiles == nil {
		return
	}
	pop, ok := a.Percentiles.Population(row.MachineKey, venueKey, season)
	if !ok || len(pop) == 0 {
		return
	}

	pcts := make([]float64, 0, len(sortedScores))
	for _, s := range sortedScores {
		p, err := percentile.PercentileOf(s, pop)
		if err != nil {
			return
		}
		pcts = append(pcts, p)
	}

	avg := meanFloat64(pcts)
	med := medianFloat64(pcts) // pcts are ascending: sortedScores is ascending
	row.AvgPercentile = &avg
	row.MedianPercentile = &med
}

// gameWinner resolves which entity ranked first in a game. Ties break by
// position order — the lower position number wins. This mirrors the league's
// round/position conventions; position 4 scores are flagged elsewhere as
// less reliable, but the tie-break is kept deterministic regardless.
func gameWinner(parts []model.ScoreRecord, mode Mode) string {
	best := parts[0]
	for _, r := range parts[1:] {
		if r.Score > best.Score || (r.Score == best.Score && r.PlayerPosition < best.PlayerPosition) {
			best = r
		}
	}
	if mode == ByTeam {
		return best.TeamKey
	}
	return best.PlayerKey
}

// --------------------------------------------------------------------------
// Small numeric helpers
// --------------------------------------------------------------------------

func meanInt64(xs []int64) float64 {
	var sum int64
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

func medianInt64(sorted []int64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return (float64(sorted[n/2-1]) + float64(sorted[n/2])) / 2
}

func meanFloat64(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func medianFloat64(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
