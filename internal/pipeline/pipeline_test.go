package pipeline

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinleague/pinstats/internal/model"
	"github.com/pinleague/pinstats/internal/registry"
	"github.com/pinleague/pinstats/internal/stats"
)

func TestSeasonLockSerializesSameSeason(t *testing.T) {
	var l seasonLocks

	first := l.lock(22)

	second := make(chan struct{})
	go func() {
		mu := l.lock(22)
		mu.Unlock()
		close(second)
	}()

	// The second pass must block while the first holds season 22.
	select {
	case <-second:
		t.Fatal("second pass acquired the season lock while the first held it")
	case <-time.After(50 * time.Millisecond):
	}

	first.Unlock()
	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("second pass never acquired the season lock")
	}
}

func TestSeasonLockDisjointSeasons(t *testing.T) {
	var l seasonLocks
	mu22 := l.lock(22)
	defer mu22.Unlock()

	done := make(chan struct{})
	go func() {
		mu21 := l.lock(21)
		mu21.Unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a pass for a different season blocked on season 22's lock")
	}
}

func TestNewAggregatorNilRegistryStaysNilInterface(t *testing.T) {
	o := &Orchestrator{Logger: slog.Default()}
	agg := o.newAggregator(buildPopulations(nil), slog.Default())
	assert.Nil(t, agg.Registry)

	// The known-machine path must be skipped entirely, not dereference a
	// typed-nil pointer.
	rows := agg.Aggregate([]model.ScoreRecord{{
		GameID:     1,
		PlayerKey:  "alice",
		TeamKey:    "wizards",
		MachineKey: "medusa",
		Season:     22,
		Done:       true,
	}}, stats.Scope{Seasons: []int{22}}, stats.ByPlayer)
	require.Len(t, rows, 1)
}

func TestNewAggregatorCarriesRegistry(t *testing.T) {
	o := &Orchestrator{Registry: &registry.Registry{}, Logger: slog.Default()}
	agg := o.newAggregator(buildPopulations(nil), slog.Default())
	assert.NotNil(t, agg.Registry)
}
