// Package rating implements the Glicko-1 rating system used for IPR tiers.
//
// Naming follows Glickman's paper: g() down-weights opponents with uncertain
// ratings, E is the expected outcome, d2 the performance variance. Ratings
// live on the familiar 1500 scale; RD is clamped to [30, 350].
//
// See http://www.glicko.net/glicko/glicko.pdf.
package rating

import (
	"fmt"
	"math"

	"github.com/pinleague/pinstats/internal/model"
)

const (
	// Q is ln(10)/400, the Glicko scale constant.
	Q = math.Ln10 / 400.0

	// DefaultRating and DefaultRD are the new-player starting values.
	DefaultRating = 1500.0
	DefaultRD     = 350.0

	// MinRD and MaxRD clamp rating deviation. RD never shrinks below MinRD
	// (nobody is that certain) and inactivity growth caps at MaxRD.
	MinRD = 30.0
	MaxRD = 350.0

	// C governs RD growth during inactive rating periods.
	C = 14.2694
)

// Result is one game outcome against one opponent within a rating period.
// Score is 1 for a win, 0.5 for a draw, 0 for a loss. GroupSize > 2 marks a
// simultaneous multi-player game (a 4-player round yields GroupSize 4): each
// opponent's weight is divided by sqrt(GroupSize-1) since the player faces
// them at once, not sequentially.
type Result struct {
	OppRating float64
	OppRD     float64
	Score     float64
	GroupSize int
}

// G computes the Glicko weighting factor for an opponent with deviation rd.
// Strictly decreasing in rd. rd must be positive.
func G(rd float64) (float64, error) {
	if rd <= 0 {
		return 0, fmt.Errorf("%w: RD must be > 0, got %v", model.ErrInvalidInput, rd)
	}
	return 1.0 / math.Sqrt(1.0+3.0*Q*Q*rd*rd/(math.Pi*math.Pi)), nil
}

// ExpectedOutcome returns the probability in (0,1) that a player rated
// rating beats an opponent at oppRating with deviation oppRD. Equal ratings
// give 0.5 regardless of the opponent's RD.
func ExpectedOutcome(rating, oppRating, oppRD float64) (float64, error) {
	g, err := G(oppRD)
	if err != nil {
		return 0, err
	}
	return 1.0 / (1.0 + math.Pow(10, -g*(rating-oppRating)/400.0)), nil
}

// NewRatingPeriod applies one Glicko-1 rating period and returns the updated
// (rating, RD). An empty result set is an inactive period: the rating holds
// and RD grows toward MaxRD. Any result with a non-positive opponent RD is
// rejected with ErrInvalidInput.
func NewRatingPeriod(rtg, rd float64, results []Result) (float64, float64, error) {
	if rd <= 0 {
		return 0, 0, fmt.Errorf("%w: RD must be > 0, got %v", model.ErrInvalidInput, rd)
	}

	if len(results) == 0 {
		grown := math.Sqrt(rd*rd + C*C)
		return rtg, math.Min(grown, MaxRD), nil
	}

	var sumGE float64  // Σ w·g²·E·(1-E)
	var sumGSE float64 // Σ w·g·(score-E)
	for _, res := range results {
		g, err := G(res.OppRD)
		if err != nil {
			return 0, 0, err
		}
		e, err := ExpectedOutcome(rtg, res.OppRating, res.OppRD)
		if err != nil {
			return 0, 0, err
		}

		w := 1.0
		if res.GroupSize > 2 {
			w = 1.0 / math.Sqrt(float64(res.GroupSize-1))
		}

		sumGE += w * g * g * e * (1 - e)
		sumGSE += w * g * (res.Score - e)
	}

	d2 := 1.0 / (Q * Q * sumGE)
	newRD := math.Max(math.Sqrt(1.0/(1.0/(rd*rd)+1.0/d2)), MinRD)
	newRating := rtg + Q*newRD*newRD*sumGSE

	return newRating, newRD, nil
}

// MPLB is the Matchplay rating lower bound: rating - 2*RD. A conservative
// skill estimate used for tier placement.
func MPLB(rating, rd float64) float64 {
	return rating - 2*rd
}

// IPRTier maps an MPLB to a 1-6 tier given five ascending cutoffs. Below the
// first cutoff is tier 1; at or above the fifth is tier 6; otherwise the tier
// whose lower cutoff is the greatest cutoff <= mplb.
func IPRTier(mplb float64, cutoffs []float64) (int, error) {
	if len(cutoffs) != 5 {
		return 0, fmt.Errorf("%w: need exactly 5 tier cutoffs, got %d", model.ErrInvalidInput, len(cutoffs))
	}
	for i := 1; i < len(cutoffs); i++ {
		if cutoffs[i] < cutoffs[i-1] {
			return 0, fmt.Errorf("%w: tier cutoffs must be non-decreasing", model.ErrInvalidInput)
		}
	}

	tier := 1
	for i, c := range cutoffs {
		if mplb >= c {
			tier = i + 2
		}
	}
	return tier, nil
}
