// Package percentile converts a raw population of machine scores into
// percentile thresholds and score lookups.
//
// Pinball score distributions are heavily right-skewed — a long tail of
// exceptional plays — so percentile rank, not raw score or z-score, is the
// normalized comparator across machines with wildly different scoring scales.
//
// Thresholds use the floor-rank method: sort ascending, threshold for p is
// the value at index floor(p/100 * (n-1)). This is documented and applied
// consistently; no interpolation between values. Thresholds always reflect
// the full population — outlier trimming is a presentation concern and is
// never applied before persisting.
package percentile

import (
	"fmt"
	"sort"

	"github.com/pinleague/pinstats/internal/model"
)

// DefaultPoints are the percentile points persisted per scope.
var DefaultPoints = []int{25, 50, 75, 90, 95}

// ComputeThresholds maps each requested percentile point to a score value
// from the population. An empty population returns ErrInsufficientData —
// callers skip writing a threshold row rather than writing a sentinel.
func ComputeThresholds(scores []int64, points []int) (map[int]int64, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: empty score population", model.ErrInsufficientData)
	}

	sorted := make([]int64, len(scores))
	copy(sorted, scores)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make(map[int]int64, len(points))
	for _, p := range points {
		if p < 0 || p > 100 {
			return nil, fmt.Errorf("%w: percentile point %d out of range", model.ErrInvalidInput, p)
		}
		idx := p * (len(sorted) - 1) / 100
		out[p] = sorted[idx]
	}
	return out, nil
}

// PercentileOf returns the standing of score within sortedScores, in
// [0, 100]. The population must be sorted ascending. A score at or above the
// max maps to 100. Ties share a percentile: the denominator is the population
// count, never the count of unique values.
func PercentileOf(score int64, sortedScores []int64) (float64, error) {
	n := len(sortedScores)
	if n == 0 {
		return 0, fmt.Errorf("%w: empty score population", model.ErrInsufficientData)
	}

	// Index of the first element >= score.
	at := sort.Search(n, func(i int) bool { return sortedScores[i] >= score })
	if score >= sortedScores[n-1] {
		return 100, nil
	}
	return float64(at) / float64(n) * 100, nil
}
