// Package config loads configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all client configuration.
type Config struct {
	// Remote endpoints
	StorageURL string
	AuthURL    string

	// Local state
	CachePath string
	TokenPath string

	// Logging
	LogLevel  string
	LogFormat string

	// Sync behaviour
	FanOut         int           // concurrent metadata fetches during a full sync
	CommitAttempts int           // bounded retries for conflicted commits
	HTTPTimeout    time.Duration

	// Metrics (empty = disabled)
	MetricsAddr string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		StorageURL:     envOr("SLATESYNC_STORAGE_URL", "https://internal.cloud.remarkable.com"),
		AuthURL:        envOr("SLATESYNC_AUTH_URL", "https://webapp-prod.cloud.remarkable.engineering"),
		CachePath:      envOr("SLATESYNC_CACHE_PATH", ""),
		TokenPath:      envOr("SLATESYNC_TOKEN_PATH", ""),
		LogLevel:       envOr("SLATESYNC_LOG_LEVEL", "info"),
		LogFormat:      envOr("SLATESYNC_LOG_FORMAT", ""),
		FanOut:         envInt("SLATESYNC_FANOUT", 8),
		CommitAttempts: envInt("SLATESYNC_COMMIT_ATTEMPTS", 5),
		HTTPTimeout:    envDuration("SLATESYNC_HTTP_TIMEOUT", 30*time.Second),
		MetricsAddr:    envOr("SLATESYNC_METRICS_ADDR", ""),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
