package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pinleague/pinstats/internal/api/respond"
	"github.com/pinleague/pinstats/internal/cache"
	"github.com/pinleague/pinstats/internal/matchup"
)

// GetMatchup returns the pre-match scouting report for two teams at a venue.
// @Summary Get matchup analysis
// @Description Returns per-machine confidence intervals for both rosters, machine-pick history, and per-player machine preferences, scoped to the venue and seasons.
// @Tags matchup
// @Produce json
// @Param homeTeam path string true "Home team key"
// @Param awayTeam path string true "Away team key"
// @Param venue query string true "Venue key"
// @Param seasons query string false "Comma-separated season list (defaults to current)"
// @Success 200 {object} model.MatchupAnalysis
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /matchup/{homeTeam}/{awayTeam} [get]
func (h *Handler) GetMatchup(w http.ResponseWriter, r *http.Request) {
	homeTeam := chi.URLParam(r, "homeTeam")
	awayTeam := chi.URLParam(r, "awayTeam")
	if homeTeam == awayTeam {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_MATCHUP", "A team cannot play itself")
		return
	}

	venue := r.URL.Query().Get("venue")
	if venue == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_VENUE", "venue query parameter is required")
		return
	}
	seasons, ok := h.parseSeasons(r)
	if !ok {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_SEASONS", "seasons must be a comma-separated list of positive integers")
		return
	}

	ttl := h.statsTTL(seasons)
	cacheKey := fmt.Sprintf("matchup:%s:%s:%s:%v", homeTeam, awayTeam, venue, seasons)

	if data, etag, found := h.cache.Get(cacheKey); found {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	ctx := r.Context()

	homeRoster, err := h.store.TeamRoster(ctx, homeTeam, seasons)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to read home roster")
		return
	}
	awayRoster, err := h.store.TeamRoster(ctx, awayTeam, seasons)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to read away roster")
		return
	}
	if len(homeRoster) == 0 || len(awayRoster) == 0 {
		respond.WriteError(w, http.StatusNotFound, "UNKNOWN_TEAM",
			"One or both teams have no recorded players in the requested seasons")
		return
	}

	// The machine pool comes from the most recent requested season; the
	// venue's lineup can change between seasons.
	latest := seasons[0]
	for _, s := range seasons {
		if s > latest {
			latest = s
		}
	}
	machines, err := h.store.VenueMachines(ctx, venue, latest)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to read venue machines")
		return
	}
	if len(machines) == 0 {
		respond.WriteError(w, http.StatusNotFound, "UNKNOWN_VENUE",
			fmt.Sprintf("No machine pool recorded for venue %q in season %d", venue, latest))
		return
	}

	playerRows, err := h.store.RosterMachineStats(ctx,
		append(append([]string(nil), homeRoster...), awayRoster...), &venue, seasons)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to read roster stats")
		return
	}

	picks, err := h.store.PickEvents(ctx, venue, seasons)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to read pick history")
		return
	}

	analysis := matchup.Predict(homeTeam, awayTeam, venue, seasons, matchup.Inputs{
		Machines:   machines,
		HomeRoster: homeRoster,
		AwayRoster: awayRoster,
		PlayerRows: playerRows,
		Picks:      picks,
	})

	data, err := json.Marshal(analysis)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode matchup")
		return
	}
	etag := h.cache.Set(cacheKey, data, ttl)
	respond.WriteJSON(w, data, etag, ttl, false)
}
