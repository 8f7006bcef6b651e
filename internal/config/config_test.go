package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5.55, cfg.Connectivity.ToleranceMeters)
	assert.Equal(t, 100, cfg.Stretch.MaxHops)
	assert.Equal(t, 5.0, cfg.Crossing.ProximityMeters)
	assert.Equal(t, 15.0, cfg.Crossing.ExclusionMeters)
	assert.Equal(t, 8, cfg.Workers.BatchConcurrency)

	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
connectivity:
  tolerance_meters: 11.1
stretch:
  max_hops: 25
roads:
  base_url: https://roads.example.com
  api_key: file-key
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 11.1, cfg.Connectivity.ToleranceMeters)
	assert.Equal(t, 25, cfg.Stretch.MaxHops)
	assert.Equal(t, "https://roads.example.com", cfg.Roads.BaseURL)
	assert.Equal(t, "file-key", cfg.Roads.APIKey)

	// Untouched sections keep their defaults
	assert.Equal(t, 5.0, cfg.Crossing.ProximityMeters)
	assert.Equal(t, 8, cfg.Workers.BatchConcurrency)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
roads:
  api_key: file-key
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("ROADNET_ROADS__API_KEY", "env-key")
	t.Setenv("ROADNET_STRETCH__MAX_HOPS", "42")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Roads.APIKey)
	assert.Equal(t, 42, cfg.Stretch.MaxHops)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tolerance", func(c *Config) { c.Connectivity.ToleranceMeters = 0 }},
		{"negative tolerance", func(c *Config) { c.Connectivity.ToleranceMeters = -1 }},
		{"zero max hops", func(c *Config) { c.Stretch.MaxHops = 0 }},
		{"zero proximity", func(c *Config) { c.Crossing.ProximityMeters = 0 }},
		{"negative exclusion", func(c *Config) { c.Crossing.ExclusionMeters = -5 }},
		{"zero concurrency", func(c *Config) { c.Workers.BatchConcurrency = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
