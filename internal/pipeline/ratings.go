package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/pinleague/pinstats/internal/model"
	"github.com/pinleague/pinstats/internal/rating"
)

// RunRatings replays the done-game corpus chronologically and recomputes
// every player's Glicko-1 rating from scratch, one rating period per
// (season, week). Deterministic by construction: the same corpus always
// yields the same ratings, so re-runs are idempotent.
//
// Unlike the aggregate passes this is sequential — opponent ratings at the
// start of a period feed the next period, so seasons cannot be parallelized.
func (o *Orchestrator) RunRatings(ctx context.Context, seasons []int) RunResult {
	start := time.Now()
	var result RunResult

	ordered := append([]int(nil), seasons...)
	sort.Ints(ordered)

	// Rating state carried across all periods.
	state := make(map[string]*model.PlayerRating)

	for _, season := range ordered {
		mu := o.seasons.lock(season)

		corpus, err := o.Store.SeasonScores(ctx, season)
		if err != nil {
			mu.Unlock()
			result.AddErrorf("season %d: read scores: %v", season, err)
			return result
		}

		o.replaySeason(state, corpus, season)

		snapshot, tiers := o.snapshot(state, season, &result)
		err = o.Store.ReplaceSeasonRatings(ctx, season, snapshot, tiers)
		mu.Unlock()
		if err != nil {
			result.AddErrorf("season %d: replace ratings: %v", season, err)
			return result
		}
		result.RatingsWritten += len(snapshot)
		o.Logger.Info("Season ratings committed", "season", season, "players", len(snapshot))
	}

	o.Logger.Info("Rating pass finished",
		"seasons", len(ordered),
		"duration", time.Since(start).Round(time.Millisecond),
		"summary", result.Summary())
	return result
}

// replaySeason applies one rating period per week of the season.
func (o *Orchestrator) replaySeason(state map[string]*model.PlayerRating, corpus []model.ScoreRecord, season int) {
	byWeek := make(map[int]map[int64][]model.ScoreRecord)
	for _, r := range corpus {
		if !r.Done {
			continue
		}
		if byWeek[r.Week] == nil {
			byWeek[r.Week] = make(map[int64][]model.ScoreRecord)
		}
		byWeek[r.Week][r.GameID] = append(byWeek[r.Week][r.GameID], r)
	}

	weeks := make([]int, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	for _, week := range weeks {
		o.applyPeriod(state, byWeek[week], season, week)
	}
}

// applyPeriod runs one Glicko rating period over a week's games. Opponent
// ratings are frozen at their start-of-period values; players already rated
// but idle this week age via the inactivity step.
func (o *Orchestrator) applyPeriod(state map[string]*model.PlayerRating, games map[int64][]model.ScoreRecord, season, week int) {
	// Ensure every participant has a state entry before results are built,
	// so opponents of a debuting player see the defaults.
	for _, parts := range games {
		for _, r := range parts {
			if state[r.PlayerKey] == nil {
				state[r.PlayerKey] = &model.PlayerRating{
					PlayerKey: r.PlayerKey,
					Rating:    rating.DefaultRating,
					RD:        rating.DefaultRD,
				}
			}
		}
	}

	results := make(map[string][]rating.Result)
	for _, parts := range games {
		for _, player := range parts {
			for _, opp := range parts {
				if opp.PlayerKey == player.PlayerKey {
					continue
				}
				score := 0.5
				switch {
				case player.Score > opp.Score:
					score = 1
				case player.Score < opp.Score:
					score = 0
				}
				oppState := state[opp.PlayerKey]
				results[player.PlayerKey] = append(results[player.PlayerKey], rating.Result{
					OppRating: oppState.Rating,
					OppRD:     oppState.RD,
					Score:     score,
					GroupSize: len(parts),
				})
			}
		}
	}

	// Apply updates against the frozen pre-period snapshot.
	for key, st := range state {
		newRating, newRD, err := rating.NewRatingPeriod(st.Rating, st.RD, results[key])
		if err != nil {
			// Invalid inputs cannot arise from state this loop maintains.
			o.Logger.Warn("Rating update failed", "player", key, "error", err)
			continue
		}
		// Safe to write in place: results already captured every
		// opponent's pre-period values.
		st.Rating, st.RD = newRating, newRD
		st.Season, st.Week = season, week
	}
}

// snapshot freezes the current state into persistable rows plus IPR tiers
// from each player's MPLB.
func (o *Orchestrator) snapshot(state map[string]*model.PlayerRating, season int, result *RunResult) ([]model.PlayerRating, map[string]int) {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]model.PlayerRating, 0, len(keys))
	tiers := make(map[string]int, len(keys))
	for _, k := range keys {
		st := state[k]
		rows = append(rows, model.PlayerRating{
			PlayerKey: st.PlayerKey,
			Rating:    st.Rating,
			RD:        st.RD,
			Season:    season,
			Week:      st.Week,
		})

		tier, err := rating.IPRTier(rating.MPLB(st.Rating, st.RD), o.IPRCutoffs)
		if err != nil {
			result.AddErrorf("IPR tier for %q: %v", k, err)
			continue
		}
		tiers[k] = tier
	}
	return rows, tiers
}
