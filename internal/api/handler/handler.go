// Package handler provides HTTP handlers for all API endpoints.
// Handlers read the derived aggregate tables through the store and do no
// aggregation of their own beyond the documented multi-season merge — the
// pipeline owns every number they serve.
package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pinleague/pinstats/internal/api/respond"
	"github.com/pinleague/pinstats/internal/cache"
	"github.com/pinleague/pinstats/internal/config"
	"github.com/pinleague/pinstats/internal/db"
	"github.com/pinleague/pinstats/internal/store"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool  *db.Pool
	store *store.Store
	cache *cache.Cache
	cfg   *config.Config
}

// New creates a Handler with shared dependencies.
func New(pool *db.Pool, st *store.Store, c *cache.Cache, cfg *config.Config) *Handler {
	return &Handler{pool: pool, store: st, cache: c, cfg: cfg}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Pinstats League API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"season":  h.cfg.CurrentSeason,
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// --------------------------------------------------------------------------
// Shared query parsing
// --------------------------------------------------------------------------

// parseSeasons reads the seasons query parameter ("21,22"), defaulting to
// the current season.
func (h *Handler) parseSeasons(r *http.Request) ([]int, bool) {
	raw := r.URL.Query().Get("seasons")
	if raw == "" {
		return []int{h.cfg.CurrentSeason}, true
	}
	parts := strings.Split(raw, ",")
	seasons := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return nil, false
		}
		seasons = append(seasons, n)
	}
	return seasons, true
}

// venueParam reads the optional venue query parameter; nil means the
// league-wide scope.
func venueParam(r *http.Request) *string {
	if v := r.URL.Query().Get("venue"); v != "" {
		return &v
	}
	return nil
}

// statsTTL picks a cache TTL: current-season data moves weekly, history
// does not.
func (h *Handler) statsTTL(seasons []int) time.Duration {
	for _, s := range seasons {
		if s == h.cfg.CurrentSeason {
			return cache.TTLCurrentSeason
		}
	}
	return cache.TTLHistorical
}
