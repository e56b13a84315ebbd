package matchup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinleague/pinstats/internal/model"
)

func statRow(player, machine string, games int, avg float64, pct *float64) model.StatRow {
	return model.StatRow{
		EntityKey:     player,
		MachineKey:    machine,
		GamesPlayed:   games,
		AvgScore:      avg,
		AvgPercentile: pct,
	}
}

func pct(v float64) *float64 { return &v }

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestPredictInsufficientSample(t *testing.T) {
	analysis := Predict("wizards", "crushers", "north-star", []int{22}, Inputs{
		Machines:   []string{"medusa"},
		HomeRoster: []string{"alice"},
		AwayRoster: []string{"bob"},
		PlayerRows: []model.StatRow{
			statRow("alice", "medusa", MinIntervalGames-1, 500, nil),
		},
	})

	require.Len(t, analysis.HomeOutlooks, 1)
	home := analysis.HomeOutlooks[0]
	assert.True(t, home.Insufficient)
	assert.Equal(t, MinIntervalGames-1, home.GamesPlayed)
	assert.Zero(t, home.MeanScore)
	assert.Zero(t, home.IntervalLow)
	assert.Zero(t, home.IntervalHigh)

	// Away roster has no rows at all on the machine.
	require.Len(t, analysis.AwayOutlooks, 1)
	assert.True(t, analysis.AwayOutlooks[0].Insufficient)
	assert.Zero(t, analysis.AwayOutlooks[0].GamesPlayed)
}

func TestPredictIntervalBrackets(t *testing.T) {
	analysis := Predict("wizards", "crushers", "north-star", []int{22}, Inputs{
		Machines:   []string{"medusa"},
		HomeRoster: []string{"alice", "carol"},
		AwayRoster: []string{"bob"},
		PlayerRows: []model.StatRow{
			statRow("alice", "medusa", 4, 1000, nil),
			statRow("carol", "medusa", 4, 2000, nil),
		},
	})

	require.Len(t, analysis.HomeOutlooks, 1)
	o := analysis.HomeOutlooks[0]
	assert.False(t, o.Insufficient)
	assert.Equal(t, 8, o.GamesPlayed)
	assert.Equal(t, 1500.0, o.MeanScore)
	assert.Less(t, o.IntervalLow, o.MeanScore)
	assert.Greater(t, o.IntervalHigh, o.MeanScore)
	assert.InDelta(t, o.MeanScore-o.IntervalLow, o.IntervalHigh-o.MeanScore, 1e-9,
		"interval is symmetric about the mean")
}

func TestPredictZeroSpreadCollapsesInterval(t *testing.T) {
	analysis := Predict("wizards", "crushers", "north-star", []int{22}, Inputs{
		Machines:   []string{"medusa"},
		HomeRoster: []string{"alice"},
		AwayRoster: []string{"bob"},
		PlayerRows: []model.StatRow{
			statRow("alice", "medusa", 6, 1000, nil),
		},
	})

	o := analysis.HomeOutlooks[0]
	assert.Equal(t, 1000.0, o.MeanScore)
	assert.Equal(t, o.MeanScore, o.IntervalLow)
	assert.Equal(t, o.MeanScore, o.IntervalHigh)
}

func TestPickFrequencyOrdering(t *testing.T) {
	picks := []PickEvent{
		{TeamKey: "wizards", MachineKey: "medusa", Date: day(1)},
		{TeamKey: "wizards", MachineKey: "medusa", Date: day(8)},
		{TeamKey: "wizards", MachineKey: "nomad", Date: day(15)},
		{TeamKey: "wizards", MachineKey: "alien", Date: day(15)},
		{TeamKey: "crushers", MachineKey: "godzilla", Date: day(8)},
	}

	analysis := Predict("wizards", "crushers", "north-star", []int{22}, Inputs{
		Machines:   []string{"medusa", "nomad", "alien", "godzilla"},
		HomeRoster: []string{"alice"},
		AwayRoster: []string{"bob"},
		Picks:      picks,
	})

	require.Len(t, analysis.HomePicks, 3)
	// medusa leads on count; nomad and alien tie on count and date, so the
	// machine key breaks the tie.
	assert.Equal(t, "medusa", analysis.HomePicks[0].MachineKey)
	assert.Equal(t, 2, analysis.HomePicks[0].TimesPicked)
	assert.Equal(t, day(8), analysis.HomePicks[0].LastPicked)
	assert.Equal(t, "alien", analysis.HomePicks[1].MachineKey)
	assert.Equal(t, "nomad", analysis.HomePicks[2].MachineKey)

	// The opponent's picks never leak into the team's list.
	require.Len(t, analysis.AwayPicks, 1)
	assert.Equal(t, "godzilla", analysis.AwayPicks[0].MachineKey)
}

func TestPickFrequencyRecencyBeforeKey(t *testing.T) {
	picks := []PickEvent{
		{TeamKey: "wizards", MachineKey: "alien", Date: day(1)},
		{TeamKey: "wizards", MachineKey: "nomad", Date: day(8)},
	}

	analysis := Predict("wizards", "crushers", "north-star", []int{22}, Inputs{
		Machines:   []string{"alien", "nomad"},
		HomeRoster: []string{"alice"},
		AwayRoster: []string{"bob"},
		Picks:      picks,
	})

	require.Len(t, analysis.HomePicks, 2)
	assert.Equal(t, "nomad", analysis.HomePicks[0].MachineKey, "equal counts rank by recency")
}

func TestPlayerPreferences(t *testing.T) {
	rows := []model.StatRow{
		statRow("alice", "medusa", 10, 0, pct(90)),
		statRow("alice", "nomad", 10, 0, pct(70)),
		statRow("alice", "alien", 3, 0, nil),
		statRow("alice", "godzilla", 8, 0, pct(70)),
		statRow("alice", "taxi", 2, 0, pct(50)),
		statRow("alice", "whirlwind", 1, 0, pct(40)),
		statRow("alice", "fathom", 1, 0, pct(30)),
	}

	analysis := Predict("wizards", "crushers", "north-star", []int{22}, Inputs{
		Machines:   []string{"medusa"},
		HomeRoster: []string{"alice"},
		AwayRoster: []string{"bob"},
		PlayerRows: rows,
	})

	require.Len(t, analysis.HomePreferences, 1)
	pref := analysis.HomePreferences[0]
	assert.Equal(t, "alice", pref.PlayerKey)
	// Percentile descending, games played breaking the 70 tie, capped at 5.
	// The percentile-less row sorts behind every rated one.
	assert.Equal(t, []string{"medusa", "nomad", "godzilla", "taxi", "whirlwind"}, pref.Machines)

	// bob has no rows; his preference entry exists with no machines.
	require.Len(t, analysis.AwayPreferences, 1)
	assert.Equal(t, "bob", analysis.AwayPreferences[0].PlayerKey)
	assert.Empty(t, analysis.AwayPreferences[0].Machines)
}

func TestPredictMachinePoolSorted(t *testing.T) {
	analysis := Predict("wizards", "crushers", "north-star", []int{21, 22}, Inputs{
		Machines:   []string{"nomad", "alien", "medusa"},
		HomeRoster: []string{"alice"},
		AwayRoster: []string{"bob"},
	})

	assert.Equal(t, []string{"alien", "medusa", "nomad"}, analysis.Machines)
	assert.Equal(t, "wizards", analysis.HomeTeam)
	assert.Equal(t, "crushers", analysis.AwayTeam)
	assert.Equal(t, "north-star", analysis.VenueKey)
	assert.Equal(t, []int{21, 22}, analysis.Seasons)

	// One outlook per machine per side, in pool order.
	require.Len(t, analysis.HomeOutlooks, 3)
	require.Len(t, analysis.AwayOutlooks, 3)
	assert.Equal(t, "alien", analysis.HomeOutlooks[0].MachineKey)
}
