package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if VIGIL_CONFIG is set
//  3. env (prefix VIGIL_)
func Load(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("VIGIL_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: VIGIL_ADDR, VIGIL_QUEUE_SIZE, ...
	// Map env keys like VIGIL_QUEUE_SIZE -> queue_size (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("VIGIL_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "vigil_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil, fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if cfg.MaxLeaderboardLimit < 1 {
		return nil, fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	if cfg.DefaultLeaderboardLimit < 1 || cfg.DefaultLeaderboardLimit > cfg.MaxLeaderboardLimit {
		return nil, fmt.Errorf("%w: default_leaderboard_limit out of range", ErrInvalidConfig)
	}
	return &cfg, nil
}
