package config

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if KEEPER_CONFIG is set
//  3. env (prefix KEEPER_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("KEEPER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: KEEPER_ADDR, KEEPER_WARN_LIMIT, ...
	// Map env keys like KEEPER_WARN_LIMIT -> warn_limit (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("KEEPER_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "keeper_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.WarnLimit < 1 {
		return nil, errors.New("warn_limit must be at least 1")
	}
	if cfg.FloodWarnScore <= 0 || cfg.FloodMaxScore <= cfg.FloodWarnScore {
		return nil, errors.New("flood thresholds must satisfy 0 < warn < max")
	}
	return &cfg, nil
}
