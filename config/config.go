// Package config loads composer settings from defaults and the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"

	"github.com/on-the-ground/mixin_ive_go/mixin"
	"github.com/on-the-ground/mixin_ive_go/shared/log"
)

// Config holds the settings of a mixin.Composer.
type Config struct {
	Shards   int
	LogLevel string
}

// Defaults are applied before any environment variable.
var Defaults = map[string]any{
	ConfigCacheShards: 1,
	ConfigLogLevel:    "info",
}

// Load reads Defaults, then environment variables starting with prefix.
// MIXIN_CACHE_SHARDS=8 with prefix EnvPrefix sets mixin.cache.shards.
func Load(prefix string) (Config, error) {
	k := koanf.New(delimiter)
	if err := k.Load(confmap.Provider(Defaults, delimiter), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider(prefix, delimiter, envKey(prefix)), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}
	return fromKoanf(k)
}

func envKey(prefix string) func(string) string {
	return func(s string) string {
		s = strings.TrimPrefix(s, prefix)
		return ConfigPrefix + delimiter + strings.ReplaceAll(strings.ToLower(s), "_", delimiter)
	}
}

func fromKoanf(k *koanf.Koanf) (Config, error) {
	cfg := Config{
		Shards:   k.Int(ConfigCacheShards),
		LogLevel: k.String(ConfigLogLevel),
	}
	if cfg.Shards <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %q", ConfigCacheShards, k.String(ConfigCacheShards))
	}
	return cfg, nil
}

// Options converts c into composer options. It fails on an unknown log level.
func (c Config) Options() ([]mixin.Option, error) {
	logger, err := log.New(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return []mixin.Option{
		mixin.WithShards(c.Shards),
		mixin.WithLogger(logger),
	}, nil
}

// NewComposer loads the configuration from the environment and builds a composer from it.
func NewComposer(prefix string, extra ...mixin.Option) (*mixin.Composer, error) {
	cfg, err := Load(prefix)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return mixin.New(append(opts, extra...)...), nil
}
