package stats

import (
	"sort"

	"github.com/pinleague/pinstats/internal/model"
)

// MergeSeasons folds single-season StatRows into one row per
// (entity, machine) spanning all seasons present.
//
// Games-played sums; average score and percentile fields are games-weighted
// averages; best/worst are scope-wide extremes. The merged median is an
// approximation: the true median is not recoverable from per-season
// aggregates alone, so it is taken from the multiset of each season's
// (worst, median, best) samples. Rows carry ApproxMedian to make that
// visible in output metadata.
func MergeSeasons(rows []model.StatRow) []model.StatRow {
	if len(rows) == 0 {
		return []model.StatRow{}
	}

	type key struct {
		entity  string
		machine string
	}
	type acc struct {
		games        int
		wins         float64 // win% * games, for weighted merge
		scoreSum     float64 // avg * games
		best         int64
		worst        int64
		medianSample []float64
		pctSum       float64 // avgPercentile * games, over rows that have one
		pctGames     int
		medPcts      []float64
		medPctGames  []int
		venue        *string
		mixedVenue   bool
	}

	accs := make(map[key]*acc)
	for _, r := range rows {
		k := key{r.EntityKey, r.MachineKey}
		a := accs[k]
		if a == nil {
			a = &acc{best: r.BestScore, worst: r.WorstScore, venue: r.VenueKey}
			accs[k] = a
		}
		if !sameVenue(a.venue, r.VenueKey) {
			a.mixedVenue = true
		}
		a.games += r.GamesPlayed
		a.wins += r.WinPercentage * float64(r.GamesPlayed)
		a.scoreSum += r.AvgScore * float64(r.GamesPlayed)
		if r.BestScore > a.best {
			a.best = r.BestScore
		}
		if r.WorstScore < a.worst {
			a.worst = r.WorstScore
		}
		a.medianSample = append(a.medianSample,
			float64(r.WorstScore), r.MedianScore, float64(r.BestScore))
		if r.AvgPercentile != nil {
			a.pctSum += *r.AvgPercentile * float64(r.GamesPlayed)
			a.pctGames += r.GamesPlayed
		}
		if r.MedianPercentile != nil {
			a.medPcts = append(a.medPcts, *r.MedianPercentile)
			a.medPctGames = append(a.medPctGames, r.GamesPlayed)
		}
	}

	out := make([]model.StatRow, 0, len(accs))
	for k, a := range accs {
		if a.games == 0 {
			continue
		}
		row := model.StatRow{
			EntityKey:     k.entity,
			MachineKey:    k.machine,
			GamesPlayed:   a.games,
			MedianScore:   medianFloat64(a.medianSample),
			AvgScore:      a.scoreSum / float64(a.games),
			BestScore:     a.best,
			WorstScore:    a.worst,
			WinPercentage: a.wins / float64(a.games),
			ApproxMedian:  true,
		}
		if !a.mixedVenue {
			row.VenueKey = a.venue
		}
		if a.pctGames > 0 {
			avg := a.pctSum / float64(a.pctGames)
			row.AvgPercentile = &avg
		}
		if len(a.medPcts) > 0 {
			med := weightedMean(a.medPcts, a.medPctGames)
			row.MedianPercentile = &med
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityKey != out[j].EntityKey {
			return out[i].EntityKey < out[j].EntityKey
		}
		return out[i].MachineKey < out[j].MachineKey
	})
	return out
}

func sameVenue(a *string, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func weightedMean(xs []float64, weights []int) float64 {
	var sum, wsum float64
	for i, x := range xs {
		sum += x * float64(weights[i])
		wsum += float64(weights[i])
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}
