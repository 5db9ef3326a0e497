// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite appearance log database.
	DBPath string `koanf:"db_path"`

	// GameQueueSize bounds the in-memory game queue.
	GameQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of commit workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the in-flight deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DefaultLeaderboardLimit is used when GET /leaderboard omits limit.
	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`

	// MaxSearchResults caps GET /search?k.
	MaxSearchResults int `koanf:"max_search_results"`

	// MaxSearchDistance bounds the name index edit distance.
	MaxSearchDistance int `koanf:"max_search_distance"`
}

// New creates a Config with defaults.
func New() *Config {
	c := &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		DBPath:                  "vigil.db",
		GameQueueSize:           100_000,
		WorkerCount:             runtime.NumCPU() * 4,
		DedupeSize:              50_000,
		MaxLeaderboardLimit:     100,
		DefaultLeaderboardLimit: 25,
		MaxSearchResults:        20,
		MaxSearchDistance:       3,
	}
	return c
}
