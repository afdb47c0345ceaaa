// Package config loads the workspace policy from config/policy.toml.
//
// The policy controls the quality thresholds, the iteration budget, and
// how the external collaborators (content generator, renderer, measurer)
// are invoked. A missing policy file yields the defaults; a malformed or
// inconsistent one is an INVALID_CONFIG error.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/slidectl/slidectl/pkg/errors"
	"github.com/slidectl/slidectl/pkg/metrics"
)

// Defaults applied where the policy file is silent.
const (
	DefaultMaxIterations  = 3
	DefaultWorkers        = 4
	DefaultCommandTimeout = 120 * time.Second
)

// Config is the full workspace policy.
type Config struct {
	Thresholds ThresholdsConfig `toml:"thresholds"`
	Optimize   OptimizeConfig   `toml:"optimize"`
	Commands   CommandsConfig   `toml:"commands"`
	Cache      CacheConfig      `toml:"cache"`
	History    HistoryConfig    `toml:"history"`
}

// ThresholdsConfig holds the allowed metric ranges.
type ThresholdsConfig struct {
	Density    [2]float64 `toml:"density"`
	Whitespace [2]float64 `toml:"whitespace"`
}

// OptimizeConfig controls the convergence loop.
type OptimizeConfig struct {
	MaxIterations  int     `toml:"max_iterations"`
	OverlapEpsilon float64 `toml:"overlap_epsilon"`
	Workers        int     `toml:"workers"`
}

// CommandsConfig names the external collaborator commands. Each command
// receives workspace-relative artifact paths and the iteration counter as
// arguments; exit 0 means success.
type CommandsConfig struct {
	Instruct string `toml:"instruct"`
	Build    string `toml:"build"`
	Augment  string `toml:"augment"`
	Render   string `toml:"render"`
	Measure  string `toml:"measure"`

	// TimeoutSeconds converts a hung collaborator into a failure instead
	// of blocking the run indefinitely.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the collaborator timeout as a duration.
func (c CommandsConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultCommandTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheConfig selects the measurement cache backend.
type CacheConfig struct {
	Backend       string `toml:"backend"` // none, file, redis
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// HistoryConfig selects the scorecard archive backend.
type HistoryConfig struct {
	Backend       string `toml:"backend"` // none, file, mongo
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// Default returns the stock policy.
func Default() *Config {
	th := metrics.DefaultThresholds()
	return &Config{
		Thresholds: ThresholdsConfig{
			Density:    th.Density,
			Whitespace: th.Whitespace,
		},
		Optimize: OptimizeConfig{
			MaxIterations:  DefaultMaxIterations,
			OverlapEpsilon: 0, // 0 selects the geometry default
			Workers:        DefaultWorkers,
		},
		Commands: CommandsConfig{
			Instruct: "echo 'generator not configured'",
			Build:    "echo 'generator not configured'",
			Augment:  "echo 'generator not configured'",
			Render:   "echo 'renderer not configured'",
			Measure:  "echo 'measurer not configured'",
		},
		Cache:   CacheConfig{Backend: "file"},
		History: HistoryConfig{Backend: "file", MongoDatabase: "slidectl"},
	}
}

// Load reads the policy from path. A missing file yields the defaults so
// a freshly initialized workspace works out of the box.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the policy for internal consistency.
func (c *Config) Validate() error {
	if err := validateRange("thresholds.density", c.Thresholds.Density); err != nil {
		return err
	}
	if err := validateRange("thresholds.whitespace", c.Thresholds.Whitespace); err != nil {
		return err
	}
	if c.Optimize.MaxIterations < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "optimize.max_iterations must be at least 1, got %d", c.Optimize.MaxIterations)
	}
	if c.Optimize.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "optimize.workers must not be negative, got %d", c.Optimize.Workers)
	}
	if c.Optimize.OverlapEpsilon < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "optimize.overlap_epsilon must not be negative, got %g", c.Optimize.OverlapEpsilon)
	}
	switch c.Cache.Backend {
	case "", "none", "file":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	switch c.History.Backend {
	case "", "none", "file":
	case "mongo":
		if c.History.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "history.mongo_uri is required for the mongo backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown history backend %q", c.History.Backend)
	}
	return nil
}

// MetricThresholds converts the policy ranges into the metrics type.
func (c *Config) MetricThresholds() metrics.Thresholds {
	return metrics.Thresholds{
		Density:    c.Thresholds.Density,
		Whitespace: c.Thresholds.Whitespace,
	}
}

// validateRange checks a [lo, hi] range: lo < hi and both within [0, 1].
func validateRange(name string, r [2]float64) error {
	if r[0] >= r[1] {
		return errors.New(errors.ErrCodeInvalidConfig, "%s: min must be less than max (got [%g, %g])", name, r[0], r[1])
	}
	if r[0] < 0 || r[1] > 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "%s: values must be between 0 and 1 (got [%g, %g])", name, r[0], r[1])
	}
	return nil
}
