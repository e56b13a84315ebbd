package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pinleague/pinstats/internal/model"
	"github.com/pinleague/pinstats/internal/percentile"
	"github.com/pinleague/pinstats/internal/registry"
	"github.com/pinleague/pinstats/internal/stats"
	"github.com/pinleague/pinstats/internal/store"
)

// Orchestrator wires the aggregation core to the store.
type Orchestrator struct {
	Store      *store.Store
	Registry   *registry.Registry
	IPRCutoffs []float64
	Logger     *slog.Logger

	seasons seasonLocks
}

// seasonLocks serializes passes that write the same season partition. A
// single Run fans out across disjoint seasons only, but independent callers
// (the refresh ticker and the scores_loaded listener) can both trigger a
// pass for the current season; without the lock their delete+insert
// transactions interleave under READ COMMITTED and duplicate every row.
type seasonLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// lock blocks until the caller holds the given season's mutex and returns
// it for unlocking.
func (l *seasonLocks) lock(season int) *sync.Mutex {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int]*sync.Mutex)
	}
	m := l.locks[season]
	if m == nil {
		m = &sync.Mutex{}
		l.locks[season] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m
}

// Run recomputes aggregates for every given season. Seasons are disjoint
// write partitions, so up to workers passes run concurrently; two passes
// never target the same (entity, machine, venue, season) rows. A season
// pass either commits whole or leaves the previous snapshot untouched.
func (o *Orchestrator) Run(ctx context.Context, seasons []int, workers int) RunResult {
	start := time.Now()
	var result RunResult

	if len(seasons) == 0 {
		o.Logger.Info("No seasons requested, nothing to do")
		return result
	}

	if workers < 1 {
		workers = 1
	}
	if workers > len(seasons) {
		workers = len(seasons)
	}

	ch := make(chan int, len(seasons))
	for _, s := range seasons {
		ch <- s
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for season := range ch {
				seasonResult := o.runSeason(ctx, season)

				mu.Lock()
				result.Add(seasonResult)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	o.Logger.Info("Pipeline run finished",
		"seasons", len(seasons), "workers", workers,
		"duration", time.Since(start).Round(time.Millisecond),
		"summary", result.Summary())
	return result
}

// runSeason is one full-scope recomputation pass: read the season's corpus,
// derive thresholds and stat rows, and replace the season's aggregate
// partition in a single transaction.
func (o *Orchestrator) runSeason(ctx context.Context, season int) RunResult {
	mu := o.seasons.lock(season)
	defer mu.Unlock()

	var result RunResult
	logger := o.Logger.With("season", season)

	corpus, err := o.Store.SeasonScores(ctx, season)
	if err != nil {
		result.AddErrorf("season %d: read scores: %v", season, err)
		return result
	}
	logger.Info("Season corpus loaded", "records", len(corpus))

	pops := buildPopulations(corpus)
	thresholds := computeThresholds(pops, season, logger)

	agg := o.newAggregator(pops, logger)

	// League-wide rows (venue NULL) plus one venue-scoped set per venue
	// seen in the corpus.
	leagueScope := stats.Scope{Seasons: []int{season}}
	playerRows := agg.Aggregate(corpus, leagueScope, stats.ByPlayer)
	teamRows := agg.Aggregate(corpus, leagueScope, stats.ByTeam)

	for _, venue := range venuesIn(corpus) {
		venueScope := stats.Scope{Seasons: []int{season}, VenueKey: venue}
		playerRows = append(playerRows, agg.Aggregate(corpus, venueScope, stats.ByPlayer)...)
		teamRows = append(teamRows, agg.Aggregate(corpus, venueScope, stats.ByTeam)...)
	}

	if err := o.Store.ReplaceSeasonAggregates(ctx, season, thresholds, playerRows, teamRows); err != nil {
		result.AddErrorf("season %d: replace aggregates: %v", season, err)
		return result
	}

	result.SeasonsProcessed = 1
	result.ThresholdsWritten = len(thresholds)
	result.PlayerRowsWritten = len(playerRows)
	result.TeamRowsWritten = len(teamRows)
	logger.Info("Season pass committed",
		"thresholds", len(thresholds),
		"player_rows", len(playerRows),
		"team_rows", len(teamRows))
	return result
}

// newAggregator builds the season aggregator. A nil *registry.Registry must
// stay a nil interface value, or the aggregator's known-machine check would
// dereference a typed nil.
func (o *Orchestrator) newAggregator(pops *populations, logger *slog.Logger) *stats.Aggregator {
	agg := &stats.Aggregator{Percentiles: pops, Logger: logger}
	if o.Registry != nil {
		agg.Registry = o.Registry
	}
	return agg
}

// --------------------------------------------------------------------------
// Percentile populations
// --------------------------------------------------------------------------

// populations holds the sorted done-game score population per scope: one
// league-wide entry (venue "") and one per venue, both keyed by machine and
// season. It backs both threshold persistence and the aggregator's
// percentile lookups, so the two always agree.
type populations struct {
	byScope map[popKey][]int64
}

type popKey struct {
	machine string
	venue   string // "" = league-wide
	season  int
}

func buildPopulations(corpus []model.ScoreRecord) *populations {
	p := &populations{byScope: make(map[popKey][]int64)}
	for _, r := range corpus {
		if !r.Done {
			continue
		}
		league := popKey{r.MachineKey, "", r.Season}
		venue := popKey{r.MachineKey, r.VenueKey, r.Season}
		p.byScope[league] = append(p.byScope[league], r.Score)
		p.byScope[venue] = append(p.byScope[venue], r.Score)
	}
	for key, scores := range p.byScope {
		sort.Slice(scores, func(i, j int) bool { return scores[i] < scores[j] })
		p.byScope[key] = scores
	}
	return p
}

// Population implements stats.PercentileSource.
func (p *populations) Population(machineKey, venueKey string, season int) ([]int64, bool) {
	pop, ok := p.byScope[popKey{machineKey, venueKey, season}]
	return pop, ok
}

// computeThresholds derives the persisted threshold rows from every
// population. Empty populations are skipped entirely — no sentinel rows.
func computeThresholds(pops *populations, season int, logger *slog.Logger) []model.PercentileThreshold {
	keys := make([]popKey, 0, len(pops.byScope))
	for key := range pops.byScope {
		if key.season == season {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].machine != keys[j].machine {
			return keys[i].machine < keys[j].machine
		}
		return keys[i].venue < keys[j].venue
	})

	var out []model.PercentileThreshold
	for _, key := range keys {
		byPoint, err := percentile.ComputeThresholds(pops.byScope[key], percentile.DefaultPoints)
		if err != nil {
			if !errors.Is(err, model.ErrInsufficientData) {
				logger.Warn("Threshold computation failed",
					"machine", key.machine, "venue", key.venue, "error", err)
			}
			continue
		}
		for _, point := range percentile.DefaultPoints {
			t := model.PercentileThreshold{
				MachineKey: key.machine,
				Season:     key.season,
				Percentile: point,
				Score:      byPoint[point],
			}
			if key.venue != "" {
				v := key.venue
				t.VenueKey = &v
			}
			out = append(out, t)
		}
	}
	return out
}

func venuesIn(corpus []model.ScoreRecord) []string {
	seen := make(map[string]bool)
	for _, r := range corpus {
		if r.Done {
			seen[r.VenueKey] = true
		}
	}
	venues := make([]string, 0, len(seen))
	for v := range seen {
		venues = append(venues, v)
	}
	sort.Strings(venues)
	return venues
}
