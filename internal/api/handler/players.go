package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pinleague/pinstats/internal/api/respond"
	"github.com/pinleague/pinstats/internal/cache"
	"github.com/pinleague/pinstats/internal/model"
	"github.com/pinleague/pinstats/internal/rating"
)

// playerProfile is the wire shape for a player lookup. Rating fields are
// omitted for players who predate the rated era.
type playerProfile struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	IPR         *int     `json:"ipr,omitempty"`
	FirstSeason int      `json:"first_season"`
	LastSeason  int      `json:"last_season"`
	Rating      *float64 `json:"rating,omitempty"`
	RD          *float64 `json:"rd,omitempty"`
	MPLB        *float64 `json:"mplb,omitempty"`
}

// GetPlayer returns a player profile with current rating state.
// @Summary Get player profile
// @Description Returns the player record plus current Glicko rating, rating deviation, and minimum-proven-level bound when the player has been rated.
// @Tags players
// @Produce json
// @Param playerKey path string true "Player key"
// @Success 200 {object} playerProfile
// @Failure 404 {object} respond.ErrorResponse
// @Router /players/{playerKey} [get]
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerKey := chi.URLParam(r, "playerKey")

	cacheKey := "player:" + playerKey
	if data, etag, found := h.cache.Get(cacheKey); found {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLEntityInfo, true)
		return
	}

	p, err := h.store.PlayerByKey(r.Context(), playerKey)
	if errors.Is(err, model.ErrUnknownReference) {
		respond.WriteError(w, http.StatusNotFound, "UNKNOWN_PLAYER",
			fmt.Sprintf("No player %q", playerKey))
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to read player")
		return
	}

	profile := playerProfile{
		Key:         p.Key,
		Name:        p.Name,
		IPR:         p.IPR,
		FirstSeason: p.FirstSeason,
		LastSeason:  p.LastSeason,
	}
	if pr, err := h.store.PlayerRating(r.Context(), playerKey); err == nil {
		mplb := rating.MPLB(pr.Rating, pr.RD)
		profile.Rating = &pr.Rating
		profile.RD = &pr.RD
		profile.MPLB = &mplb
	} else if !errors.Is(err, model.ErrUnknownReference) {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to read player rating")
		return
	}

	data, err := json.Marshal(profile)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode player")
		return
	}
	etag := h.cache.Set(cacheKey, data, cache.TTLEntityInfo)
	respond.WriteJSON(w, data, etag, cache.TTLEntityInfo, false)
}

// GetVenueMachines returns the machine pool at a venue for a season.
// @Summary Get venue machine pool
// @Description Returns the canonical machine keys present at a venue in a season, sorted ascending.
// @Tags venues
// @Produce json
// @Param venueKey path string true "Venue key"
// @Param season query int false "Season (defaults to current)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /venues/{venueKey}/machines [get]
func (h *Handler) GetVenueMachines(w http.ResponseWriter, r *http.Request) {
	venueKey := chi.URLParam(r, "venueKey")

	season := h.cfg.CurrentSeason
	if s := r.URL.Query().Get("season"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_SEASON", "season must be a positive integer")
			return
		}
		season = n
	}

	cacheKey := fmt.Sprintf("venue:%s:%d", venueKey, season)
	if data, etag, found := h.cache.Get(cacheKey); found {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLEntityInfo, true)
		return
	}

	machines, err := h.store.VenueMachines(r.Context(), venueKey, season)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to read venue machines")
		return
	}
	if len(machines) == 0 {
		respond.WriteError(w, http.StatusNotFound, "UNKNOWN_VENUE",
			fmt.Sprintf("No machine pool recorded for venue %q in season %d", venueKey, season))
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"venue":    venueKey,
		"season":   season,
		"machines": machines,
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode machines")
		return
	}
	etag := h.cache.Set(cacheKey, data, cache.TTLEntityInfo)
	respond.WriteJSON(w, data, etag, cache.TTLEntityInfo, false)
}
