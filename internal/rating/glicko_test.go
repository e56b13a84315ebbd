package rating

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinleague/pinstats/internal/model"
)

func TestGDecreasingInRD(t *testing.T) {
	g30, err := G(30)
	require.NoError(t, err)
	g100, err := G(100)
	require.NoError(t, err)
	g350, err := G(350)
	require.NoError(t, err)

	assert.Greater(t, g30, g100)
	assert.Greater(t, g100, g350)
	assert.LessOrEqual(t, g30, 1.0)
	assert.Greater(t, g350, 0.0)
}

func TestGRejectsNonPositiveRD(t *testing.T) {
	_, err := G(0)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = G(-50)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestExpectedOutcomeEqualRatings(t *testing.T) {
	for _, rd := range []float64{30, 100, 350} {
		e, err := ExpectedOutcome(1500, 1500, rd)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, e, 1e-12, "rd=%v", rd)
	}
}

func TestExpectedOutcomeBounds(t *testing.T) {
	e, err := ExpectedOutcome(2000, 1000, 50)
	require.NoError(t, err)
	assert.Greater(t, e, 0.9)
	assert.Less(t, e, 1.0)

	e, err = ExpectedOutcome(1000, 2000, 50)
	require.NoError(t, err)
	assert.Less(t, e, 0.1)
	assert.Greater(t, e, 0.0)
}

func TestInactivePeriodGrowsRD(t *testing.T) {
	rtg, rd, err := NewRatingPeriod(1500, 200, nil)
	require.NoError(t, err)

	assert.Equal(t, 1500.0, rtg, "inactivity never moves the rating")
	assert.InDelta(t, math.Sqrt(200*200+C*C), rd, 1e-9)
	assert.Greater(t, rd, 200.0)
}

func TestInactivePeriodCapsAtMaxRD(t *testing.T) {
	_, rd, err := NewRatingPeriod(1500, MaxRD, nil)
	require.NoError(t, err)
	assert.Equal(t, MaxRD, rd)
}

func TestWinRaisesRatingAndShrinksRD(t *testing.T) {
	rtg, rd, err := NewRatingPeriod(1500, 200, []Result{
		{OppRating: 1500, OppRD: 30, Score: 1, GroupSize: 2},
	})
	require.NoError(t, err)

	assert.Greater(t, rtg, 1500.0)
	assert.Less(t, rd, 200.0)
	assert.GreaterOrEqual(t, rd, MinRD)
}

func TestLossLowersRating(t *testing.T) {
	rtg, _, err := NewRatingPeriod(1500, 200, []Result{
		{OppRating: 1500, OppRD: 30, Score: 0, GroupSize: 2},
	})
	require.NoError(t, err)
	assert.Less(t, rtg, 1500.0)
}

func TestGroupWinMovesLessThanHeadToHead(t *testing.T) {
	h2h, h2hRD, err := NewRatingPeriod(1500, 200, []Result{
		{OppRating: 1500, OppRD: 30, Score: 1, GroupSize: 2},
	})
	require.NoError(t, err)

	group, groupRD, err := NewRatingPeriod(1500, 200, []Result{
		{OppRating: 1500, OppRD: 30, Score: 1, GroupSize: 4},
	})
	require.NoError(t, err)

	// A single win inside a 4-player group carries weight 1/sqrt(3): less
	// rating movement and less certainty gain than a head-to-head win.
	assert.Greater(t, h2h, group)
	assert.Greater(t, group, 1500.0)
	assert.Less(t, h2hRD, groupRD)
}

func TestRatingPeriodRejectsBadRD(t *testing.T) {
	_, _, err := NewRatingPeriod(1500, 0, nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, _, err = NewRatingPeriod(1500, 200, []Result{
		{OppRating: 1500, OppRD: -1, Score: 1, GroupSize: 2},
	})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestMPLB(t *testing.T) {
	assert.Equal(t, 1300.0, MPLB(1500, 100))
	assert.Equal(t, 800.0, MPLB(1500, 350))
}

func TestIPRTier(t *testing.T) {
	cutoffs := []float64{1000, 1200, 1400, 1600, 1800}

	cases := []struct {
		mplb float64
		tier int
	}{
		{900, 1},
		{1000, 2},
		{1199, 2},
		{1300, 3},
		{1400, 4},
		{1799, 5},
		{1800, 6},
		{2400, 6},
	}
	for _, c := range cases {
		tier, err := IPRTier(c.mplb, cutoffs)
		require.NoError(t, err)
		assert.Equal(t, c.tier, tier, "mplb=%v", c.mplb)
	}
}

func TestIPRTierValidatesCutoffs(t *testing.T) {
	_, err := IPRTier(1300, []float64{1000, 1200, 1400})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = IPRTier(1300, []float64{1000, 1200, 1100, 1600, 1800})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
