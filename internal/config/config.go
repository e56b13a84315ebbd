// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	PlayersTable        = "players"
	TeamsTable          = "teams"
	VenuesTable         = "venues"
	MachinesTable       = "machines"
	MachineAliasesTable = "machine_aliases"
	VenueMachinesTable  = "venue_machines"
	MatchesTable        = "matches"
	GamesTable          = "games"
	ScoresTable         = "scores"
	ThresholdsTable     = "percentile_thresholds"
	PlayerMachineTable  = "player_machine_stats"
	TeamMachineTable    = "team_machine_stats"
	PlayerRatingsTable  = "player_ratings"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database. DATABASE_URL is the only selector between production and a
	// local copy — no ambient global toggles anywhere else.
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// League
	CurrentSeason int

	// Rating: the five ascending MPLB cutoffs separating IPR tiers 1-6.
	IPRCutoffs []float64

	// Pipeline
	PipelineWorkers int
	RefreshInterval time.Duration // 0 disables the background recompute

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("PINSTATS_DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or PINSTATS_DATABASE_URL must be set")
	}

	cutoffs, err := envFloatList("IPR_TIER_CUTOFFS", []float64{1000, 1200, 1400, 1600, 1800})
	if err != nil {
		return nil, fmt.Errorf("parse IPR_TIER_CUTOFFS: %w", err)
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CurrentSeason: envInt("CURRENT_SEASON", 22),

		IPRCutoffs: cutoffs,

		PipelineWorkers: envInt("PIPELINE_WORKERS", 2),
		RefreshInterval: time.Duration(envInt("REFRESH_INTERVAL_MINUTES", 0)) * time.Minute,

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

func envFloatList(key string, fallback []float64) ([]float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parts := strings.Split(v, ",")
	result := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, nil
}
