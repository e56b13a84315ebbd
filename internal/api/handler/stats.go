package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pinleague/pinstats/internal/api/respond"
	"github.com/pinleague/pinstats/internal/cache"
	"github.com/pinleague/pinstats/internal/model"
	"github.com/pinleague/pinstats/internal/stats"
)

// statsResponse is the wire shape for entity machine stats. Merged marks a
// multi-season merge, whose medians are approximate by construction (the
// true median is not recoverable from per-season aggregates).
type statsResponse struct {
	EntityType string          `json:"entity_type"`
	EntityKey  string          `json:"entity_key"`
	Seasons    []int           `json:"seasons"`
	Venue      *string         `json:"venue,omitempty"`
	Merged     bool            `json:"merged"`
	Rows       []model.StatRow `json:"rows"`
}

// GetEntityStats returns per-machine stats for a player or team.
// @Summary Get entity machine stats
// @Description Returns per-machine aggregate rows for a player or team. Multiple seasons are merged with games-weighted averages; merged medians are approximate.
// @Tags stats
// @Produce json
// @Param entityType path string true "Entity type" Enums(player, team)
// @Param entityKey path string true "Entity key"
// @Param seasons query string false "Comma-separated season list (defaults to current)"
// @Param venue query string false "Venue key (defaults to league-wide)"
// @Success 200 {object} statsResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /stats/{entityType}/{entityKey} [get]
func (h *Handler) GetEntityStats(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityKey := chi.URLParam(r, "entityKey")

	if entityType != "player" && entityType != "team" {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_TYPE", "Entity type must be 'player' or 'team'")
		return
	}
	seasons, ok := h.parseSeasons(r)
	if !ok {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_SEASONS", "seasons must be a comma-separated list of positive integers")
		return
	}
	venue := venueParam(r)

	ttl := h.statsTTL(seasons)
	cacheKey := fmt.Sprintf("stats:%s:%s:%v:%s", entityType, entityKey, seasons, deref(venue))

	if data, etag, found := h.cache.Get(cacheKey); found {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	var rows []model.StatRow
	var err error
	if entityType == "player" {
		rows, err = h.store.PlayerMachineStats(r.Context(), entityKey, seasons, venue)
	} else {
		rows, err = h.store.TeamMachineStats(r.Context(), entityKey, seasons, venue)
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to read stats")
		return
	}
	if len(rows) == 0 {
		respond.WriteError(w, http.StatusNotFound, "INSUFFICIENT_DATA",
			fmt.Sprintf("No stats for %s %q in the requested scope", entityType, entityKey))
		return
	}

	resp := statsResponse{
		EntityType: entityType,
		EntityKey:  entityKey,
		Seasons:    seasons,
		Venue:      venue,
		Rows:       rows,
	}
	if len(seasons) > 1 {
		resp.Rows = stats.MergeSeasons(rows)
		resp.Merged = true
	}

	data, err := json.Marshal(resp)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode stats")
		return
	}
	etag := h.cache.Set(cacheKey, data, ttl)
	respond.WriteJSON(w, data, etag, ttl, false)
}

// GetPercentiles returns the persisted percentile thresholds for a machine.
// @Summary Get percentile thresholds
// @Description Returns the percentile-point to score mapping for a machine scope. Thresholds reflect the full score population; no outlier trimming.
// @Tags percentiles
// @Produce json
// @Param machineKey path string true "Canonical machine key"
// @Param season query int false "Season (defaults to current)"
// @Param venue query string false "Venue key (defaults to league-wide)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /percentiles/{machineKey} [get]
func (h *Handler) GetPercentiles(w http.ResponseWriter, r *http.Request) {
	machineKey := chi.URLParam(r, "machineKey")
	venue := venueParam(r)

	season := h.cfg.CurrentSeason
	if s := r.URL.Query().Get("season"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_SEASON", "season must be a positive integer")
			return
		}
		season = n
	}

	ttl := h.statsTTL([]int{season})
	cacheKey := fmt.Sprintf("pct:%s:%d:%s", machineKey, season, deref(venue))

	if data, etag, found := h.cache.Get(cacheKey); found {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	thresholds, err := h.store.ThresholdsForScope(r.Context(), machineKey, venue, season)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to read thresholds")
		return
	}
	if len(thresholds) == 0 {
		// No population existed for this scope — absent, not zero.
		respond.WriteError(w, http.StatusNotFound, "INSUFFICIENT_DATA",
			fmt.Sprintf("No score population for machine %q in the requested scope", machineKey))
		return
	}

	points := make(map[string]int64, len(thresholds))
	for _, t := range thresholds {
		points[strconv.Itoa(t.Percentile)] = t.Score
	}
	data, err := json.Marshal(map[string]interface{}{
		"machine":    machineKey,
		"venue":      venue,
		"season":     season,
		"thresholds": points,
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode thresholds")
		return
	}
	etag := h.cache.Set(cacheKey, data, ttl)
	respond.WriteJSON(w, data, etag, ttl, false)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
