package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinleague/pinstats/internal/model"
)

// rec builds a done score record with the common defaults used across tests.
func rec(gameID int64, player, team, machine string, score int64, pos int) model.ScoreRecord {
	return model.ScoreRecord{
		GameID:         gameID,
		PlayerKey:      player,
		PlayerPosition: pos,
		Score:          score,
		TeamKey:        team,
		MachineKey:     machine,
		VenueKey:       "north-star",
		RoundNumber:    2,
		Season:         22,
		Week:           1,
		Done:           true,
	}
}

func scope22() Scope { return Scope{Seasons: []int{22}} }

type fakePercentiles struct {
	pops map[string][]int64
}

func (f fakePercentiles) Population(machine, venue string, season int) ([]int64, bool) {
	pop, ok := f.pops[machine]
	return pop, ok
}

type fakeRegistry struct {
	known map[string]bool
}

func (f fakeRegistry) KnownMachine(key string) bool { return f.known[key] }

func TestAggregateBasicStats(t *testing.T) {
	a := &Aggregator{}
	records := []model.ScoreRecord{
		rec(1, "alice", "wizards", "medusa", 100, 1),
		rec(1, "bob", "crushers", "medusa", 50, 2),
		rec(2, "alice", "wizards", "medusa", 300, 1),
		rec(2, "bob", "crushers", "medusa", 400, 2),
	}

	rows := a.Aggregate(records, scope22(), ByPlayer)
	require.Len(t, rows, 2)

	alice := rows[0]
	assert.Equal(t, "alice", alice.EntityKey)
	assert.Equal(t, "medusa", alice.MachineKey)
	assert.Equal(t, 2, alice.GamesPlayed)
	assert.Equal(t, 200.0, alice.AvgScore)
	assert.Equal(t, 200.0, alice.MedianScore)
	assert.Equal(t, int64(300), alice.BestScore)
	assert.Equal(t, int64(100), alice.WorstScore)
	assert.Equal(t, 50.0, alice.WinPercentage)
	require.NotNil(t, alice.Season)
	assert.Equal(t, 22, *alice.Season)
	assert.Nil(t, alice.VenueKey, "league-wide scope leaves venue nil")
	assert.Nil(t, alice.AvgPercentile, "no percentile source means nil fields")
	assert.False(t, alice.ApproxMedian)
}

func TestAggregateSkipsUnfinishedGames(t *testing.T) {
	a := &Aggregator{}
	pending := rec(3, "alice", "wizards", "medusa", 999, 1)
	pending.Done = false

	rows := a.Aggregate([]model.ScoreRecord{
		rec(1, "alice", "wizards", "medusa", 100, 1),
		rec(1, "bob", "crushers", "medusa", 50, 2),
		pending,
	}, scope22(), ByPlayer)

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].GamesPlayed)
	assert.Equal(t, int64(100), rows[0].BestScore)
}

func TestAggregateTieBreaksByPosition(t *testing.T) {
	a := &Aggregator{}
	rows := a.Aggregate([]model.ScoreRecord{
		rec(1, "alice", "wizards", "medusa", 500, 2),
		rec(1, "bob", "crushers", "medusa", 500, 1),
	}, scope22(), ByPlayer)

	require.Len(t, rows, 2)
	// Equal scores: the lower position number takes the game.
	assert.Equal(t, "alice", rows[0].EntityKey)
	assert.Equal(t, 0.0, rows[0].WinPercentage)
	assert.Equal(t, "bob", rows[1].EntityKey)
	assert.Equal(t, 100.0, rows[1].WinPercentage)
}

func TestAggregateByTeam(t *testing.T) {
	a := &Aggregator{}
	// One 4-player group game: two players per team on the same machine.
	records := []model.ScoreRecord{
		rec(1, "alice", "wizards", "medusa", 400, 1),
		rec(1, "carol", "wizards", "medusa", 100, 3),
		rec(1, "bob", "crushers", "medusa", 300, 2),
		rec(1, "dave", "crushers", "medusa", 200, 4),
	}
	for i := range records {
		records[i].RoundNumber = 1
	}

	rows := a.Aggregate(records, scope22(), ByTeam)
	require.Len(t, rows, 2)

	crushers, wizards := rows[0], rows[1]
	assert.Equal(t, "crushers", crushers.EntityKey)
	assert.Equal(t, "wizards", wizards.EntityKey)

	// Each team played the game once even with two scores in it.
	assert.Equal(t, 1, wizards.GamesPlayed)
	assert.Equal(t, 1, crushers.GamesPlayed)
	assert.Equal(t, 100.0, wizards.WinPercentage)
	assert.Equal(t, 0.0, crushers.WinPercentage)

	// Team best/worst span both players' scores.
	assert.Equal(t, int64(400), wizards.BestScore)
	assert.Equal(t, int64(100), wizards.WorstScore)
}

func TestAggregateScopeFilters(t *testing.T) {
	a := &Aggregator{}

	otherVenue := rec(2, "alice", "wizards", "medusa", 900, 1)
	otherVenue.VenueKey = "south-paw"
	otherSeason := rec(3, "alice", "wizards", "medusa", 800, 1)
	otherSeason.Season = 21
	sub := rec(4, "alice", "wizards", "medusa", 700, 1)
	sub.IsSubstitute = true
	round4 := rec(5, "alice", "wizards", "medusa", 600, 1)
	round4.RoundNumber = 4

	records := []model.ScoreRecord{
		rec(1, "alice", "wizards", "medusa", 100, 1),
		otherVenue, otherSeason, sub, round4,
	}

	rows := a.Aggregate(records, Scope{
		Seasons:            []int{22},
		VenueKey:           "north-star",
		Rounds:             []int{2, 3},
		ExcludeSubstitutes: true,
	}, ByPlayer)

	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].GamesPlayed)
	assert.Equal(t, int64(100), rows[0].BestScore)
	require.NotNil(t, rows[0].VenueKey)
	assert.Equal(t, "north-star", *rows[0].VenueKey)
}

func TestAggregateSkipsUnknownMachines(t *testing.T) {
	a := &Aggregator{Registry: fakeRegistry{known: map[string]bool{"medusa": true}}}

	ghost := rec(2, "alice", "wizards", "hauntedhouse", 500, 1)
	rows := a.Aggregate([]model.ScoreRecord{
		rec(1, "alice", "wizards", "medusa", 100, 1),
		ghost,
	}, scope22(), ByPlayer)

	require.Len(t, rows, 1)
	assert.Equal(t, "medusa", rows[0].MachineKey)
}

func TestAggregatePercentileFields(t *testing.T) {
	a := &Aggregator{Percentiles: fakePercentiles{pops: map[string][]int64{
		"medusa": {100, 200, 300, 400, 500},
	}}}

	rows := a.Aggregate([]model.ScoreRecord{
		rec(1, "alice", "wizards", "medusa", 300, 1),
		rec(1, "bob", "crushers", "nomad", 50, 2),
	}, scope22(), ByPlayer)
	require.Len(t, rows, 2)

	alice := rows[0]
	require.NotNil(t, alice.AvgPercentile)
	require.NotNil(t, alice.MedianPercentile)
	assert.Equal(t, 40.0, *alice.AvgPercentile)
	assert.Equal(t, 40.0, *alice.MedianPercentile)

	// No population for nomad: fields stay nil instead of borrowing a scope.
	bob := rows[1]
	assert.Nil(t, bob.AvgPercentile)
	assert.Nil(t, bob.MedianPercentile)
}

func TestAggregateDeterministic(t *testing.T) {
	a := &Aggregator{}
	records := []model.ScoreRecord{
		rec(1, "zoe", "wizards", "nomad", 100, 1),
		rec(1, "bob", "crushers", "nomad", 200, 2),
		rec(2, "zoe", "wizards", "medusa", 300, 1),
		rec(2, "alice", "crushers", "medusa", 400, 2),
	}

	first := a.Aggregate(records, scope22(), ByPlayer)
	second := a.Aggregate(records, scope22(), ByPlayer)
	assert.Equal(t, first, second)

	// Sorted by entity, then machine.
	keys := make([]string, 0, len(first))
	for _, r := range first {
		keys = append(keys, r.EntityKey+"/"+r.MachineKey)
	}
	assert.Equal(t, []string{"alice/medusa", "bob/nomad", "zoe/medusa", "zoe/nomad"}, keys)
}

func TestAggregateEmptyScope(t *testing.T) {
	a := &Aggregator{}
	rows := a.Aggregate(nil, scope22(), ByPlayer)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
