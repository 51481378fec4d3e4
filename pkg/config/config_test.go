package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blurcluster/pkg/config"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, config.Default().Validate())
}

func TestValidateRejectsTierSetWithoutOne(t *testing.T) {
	cfg := config.Default()
	cfg.Blur.Kernels = []int{2, 3}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must contain 1")
}

func TestValidateRejectsNonPositiveTier(t *testing.T) {
	cfg := config.Default()
	cfg.Blur.Kernels = []int{1, 0}
	assert.Error(t, cfg.Validate())

	cfg.Blur.Kernels = []int{1, -2}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadScalars(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero rescale", func(c *config.Config) { c.Blur.TickWidthRescale = 0 }},
		{"zero tier ceiling", func(c *config.Config) { c.Blur.MaxTickWidthScale = 0 }},
		{"negative blur radius", func(c *config.Config) { c.Blur.WireRadius = -1 }},
		{"zero min size", func(c *config.Config) { c.Cluster.MinSize = 0 }},
		{"negative distance", func(c *config.Config) { c.Cluster.TickDistance = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Blur.WireRadius = 9
	cfg.Blur.Kernels = []int{1, 2}
	cfg.Cluster.MinSeed = 42.5
	cfg.Cluster.MinSize = 5

	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, config.Save(cfg, path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	cfg := config.Default()
	cfg.Blur.Kernels = []int{3}

	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, config.Save(cfg, path))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadOverridesSubsetOfFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	yaml := "cluster:\n  minSeed: 25.0\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25.0, cfg.Cluster.MinSeed)
	// Untouched fields keep their defaults.
	assert.Equal(t, config.Default().Blur.WireRadius, cfg.Blur.WireRadius)
	assert.Equal(t, config.Default().Blur.Kernels, cfg.Blur.Kernels)
}
