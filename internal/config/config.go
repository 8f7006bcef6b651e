// Package config loads engine configuration from a YAML file and
// environment variables. Environment variables use the ROADNET_ prefix with
// double underscores for nesting, e.g. ROADNET_ROADS__API_KEY.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ROADNET_"

// Config represents the complete engine configuration
type Config struct {
	Connectivity ConnectivityConfig `koanf:"connectivity"`
	Stretch      StretchConfig      `koanf:"stretch"`
	Crossing     CrossingConfig     `koanf:"crossing"`
	Roads        RoadsAPIConfig     `koanf:"roads"`
	Workers      WorkerConfig       `koanf:"workers"`
}

// ConnectivityConfig holds endpoint matching settings
type ConnectivityConfig struct {
	// ToleranceMeters is the endpoint matching tolerance. The default of
	// 5.55m corresponds to 0.00005 degrees at the equator.
	ToleranceMeters float64 `koanf:"tolerance_meters"`
}

// StretchConfig holds stretch traversal settings
type StretchConfig struct {
	MaxHops int `koanf:"max_hops"`
}

// CrossingConfig holds crossing detection settings
type CrossingConfig struct {
	ProximityMeters    float64 `koanf:"proximity_meters"`
	ExclusionMeters    float64 `koanf:"exclusion_meters"`
	SearchBufferMeters float64 `koanf:"search_buffer_meters"`
	MaxCandidates      int     `koanf:"max_candidates"`
	MaxPages           int     `koanf:"max_pages"`
}

// RoadsAPIConfig holds roads-management API client settings
type RoadsAPIConfig struct {
	BaseURL           string  `koanf:"base_url"`
	APIKey            string  `koanf:"api_key"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// WorkerConfig holds concurrency settings for batch operations
type WorkerConfig struct {
	BatchConcurrency int `koanf:"batch_concurrency"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Connectivity: ConnectivityConfig{
			ToleranceMeters: 5.55,
		},
		Stretch: StretchConfig{
			MaxHops: 100,
		},
		Crossing: CrossingConfig{
			ProximityMeters:    5,
			ExclusionMeters:    15,
			SearchBufferMeters: 100,
			MaxCandidates:      20000,
			MaxPages:           50,
		},
		Roads: RoadsAPIConfig{
			RequestsPerSecond: 10,
		},
		Workers: WorkerConfig{
			BatchConcurrency: 8,
		},
	}
}

// Load reads configuration from the given YAML file, if any, then overlays
// environment variables. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKeyMapper maps ROADNET_CONNECTIVITY__TOLERANCE_METERS to
// connectivity.tolerance_meters.
func envKeyMapper(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.Connectivity.ToleranceMeters <= 0 {
		return fmt.Errorf("connectivity.tolerance_meters must be positive, got %v", c.Connectivity.ToleranceMeters)
	}
	if c.Stretch.MaxHops <= 0 {
		return fmt.Errorf("stretch.max_hops must be positive, got %d", c.Stretch.MaxHops)
	}
	if c.Crossing.ProximityMeters <= 0 {
		return fmt.Errorf("crossing.proximity_meters must be positive, got %v", c.Crossing.ProximityMeters)
	}
	if c.Crossing.ExclusionMeters < 0 {
		return fmt.Errorf("crossing.exclusion_meters must not be negative, got %v", c.Crossing.ExclusionMeters)
	}
	if c.Workers.BatchConcurrency <= 0 {
		return fmt.Errorf("workers.batch_concurrency must be positive, got %d", c.Workers.BatchConcurrency)
	}
	return nil
}
