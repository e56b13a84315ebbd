// Package matchup builds pre-match scouting reports: per-machine confidence
// intervals for each team, machine-pick history, and per-player machine
// preferences, all scoped to a venue and a set of seasons.
package matchup

import (
	"math"
	"sort"
	"time"

	"github.com/pinleague/pinstats/internal/model"
)

const (
	// MinIntervalGames is the minimum combined roster sample on a machine
	// before an interval is emitted. Below it the outlook is marked
	// insufficient — a narrow interval from 3 games is worse than none.
	MinIntervalGames = 5

	// zCritical95 is the two-sided 95% normal critical value.
	zCritical95 = 1.96

	// preferenceDepth caps per-player top-machine lists.
	preferenceDepth = 5
)

// PickEvent is one exercise of machine-selection rights: the team chose the
// machine for a round it controlled.
type PickEvent struct {
	TeamKey    string
	MachineKey string
	Date       time.Time
}

// Inputs carries everything the predictor needs, already scoped to
// (venue, seasons) by the caller. PlayerRows are per-player-per-machine
// StatRows for both rosters at that scope.
type Inputs struct {
	Machines   []string // current machine pool at the venue
	HomeRoster []string
	AwayRoster []string
	PlayerRows []model.StatRow
	Picks      []PickEvent
}

// Predict assembles the full matchup analysis. It never fails: thin data
// surfaces as insufficient-data outlooks and short lists, not errors.
func Predict(homeTeam, awayTeam, venueKey string, seasons []int, in Inputs) model.MatchupAnalysis {
	rowsByPlayer := make(map[string][]model.StatRow)
	for _, r := range in.PlayerRows {
		rowsByPlayer[r.EntityKey] = append(rowsByPlayer[r.EntityKey], r)
	}

	machines := append([]string(nil), in.Machines...)
	sort.Strings(machines)

	return model.MatchupAnalysis{
		HomeTeam: homeTeam,
		AwayTeam: awayTeam,
		VenueKey: venueKey,
		Seasons:  seasons,
		Machines: machines,

		HomeOutlooks: teamOutlooks(homeTeam, in.HomeRoster, rowsByPlayer, machines),
		AwayOutlooks: teamOutlooks(awayTeam, in.AwayRoster, rowsByPlayer, machines),

		HomePicks: pickFrequency(homeTeam, in.Picks),
		AwayPicks: pickFrequency(awayTeam, in.Picks),

		HomePreferences: playerPreferences(in.HomeRoster, rowsByPlayer),
		AwayPreferences: playerPreferences(in.AwayRoster, rowsByPlayer),
	}
}

// teamOutlooks computes one outlook per machine in the pool from the
// roster's StatRows on that machine.
//
// The interval is a 95% normal approximation on the mean score:
// mean +/- 1.96*stddev/sqrt(n). Score distributions are right-skewed and the
// spread is estimated from the games-weighted dispersion of per-player
// averages, so the bounds are indicative, not exact. No small-sample exact
// method is attempted.
func teamOutlooks(teamKey string, roster []string, rowsByPlayer map[string][]model.StatRow, machines []string) []model.TeamMachineOutlook {
	out := make([]model.TeamMachineOutlook, 0, len(machines))
	for _, machine := range machines {
		var rows []model.StatRow
		for _, player := range roster {
			for _, r := range rowsByPlayer[player] {
				if r.MachineKey == machine {
					rows = append(rows, r)
				}
			}
		}

		o := model.TeamMachineOutlook{TeamKey: teamKey, MachineKey: machine}
		for _, r := range rows {
			o.GamesPlayed += r.GamesPlayed
		}
		if o.GamesPlayed < MinIntervalGames {
			o.Insufficient = true
			out = append(out, o)
			continue
		}

		n := float64(o.GamesPlayed)
		var sum float64
		for _, r := range rows {
			sum += r.AvgScore * float64(r.GamesPlayed)
		}
		mean := sum / n

		var varSum float64
		for _, r := range rows {
			d := r.AvgScore - mean
			varSum += float64(r.GamesPlayed) * d * d
		}
		stddev := math.Sqrt(varSum / n)

		bound := zCritical95 * stddev / math.Sqrt(n)
		o.MeanScore = mean
		o.IntervalLow = mean - bound
		o.IntervalHigh = mean + bound
		out = append(out, o)
	}
	return out
}

// pickFrequency ranks the machines a team chose when it held selection
// rights: times picked descending, most recent pick descending, then machine
// key ascending for full determinism.
func pickFrequency(teamKey string, picks []PickEvent) []model.MachinePick {
	type agg struct {
		count int
		last  time.Time
	}
	byMachine := make(map[string]*agg)
	for _, p := range picks {
		if p.TeamKey != teamKey {
			continue
		}
		a := byMachine[p.MachineKey]
		if a == nil {
			a = &agg{}
			byMachine[p.MachineKey] = a
		}
		a.count++
		if p.Date.After(a.last) {
			a.last = p.Date
		}
	}

	out := make([]model.MachinePick, 0, len(byMachine))
	for machine, a := range byMachine {
		out = append(out, model.MachinePick{
			MachineKey:  machine,
			TimesPicked: a.count,
			LastPicked:  a.last,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimesPicked != out[j].TimesPicked {
			return out[i].TimesPicked > out[j].TimesPicked
		}
		if !out[i].LastPicked.Equal(out[j].LastPicked) {
			return out[i].LastPicked.After(out[j].LastPicked)
		}
		return out[i].MachineKey < out[j].MachineKey
	})
	return out
}

// playerPreferences ranks each roster player's machines by average
// percentile (rows without percentiles sort last), then games played, then
// machine key.
func playerPreferences(roster []string, rowsByPlayer map[string][]model.StatRow) []model.PlayerPreference {
	out := make([]model.PlayerPreference, 0, len(roster))
	for _, player := range roster {
		rows := append([]model.StatRow(nil), rowsByPlayer[player]...)
		sort.Slice(rows, func(i, j int) bool {
			pi, pj := pctOrNeg(rows[i]), pctOrNeg(rows[j])
			if pi != pj {
				return pi > pj
			}
			if rows[i].GamesPlayed != rows[j].GamesPlayed {
				return rows[i].GamesPlayed > rows[j].GamesPlayed
			}
			return rows[i].MachineKey < rows[j].MachineKey
		})

		pref := model.PlayerPreference{PlayerKey: player}
		for _, r := range rows {
			if len(pref.Machines) == preferenceDepth {
				break
			}
			pref.Machines = append(pref.Machines, r.MachineKey)
		}
		out = append(out, pref)
	}
	return out
}

func pctOrNeg(r model.StatRow) float64 {
	if r.AvgPercentile == nil {
		return -1
	}
	return *r.AvgPercentile
}
