// Package config provides configuration loading and validation for
// blurcluster. Configuration is read from YAML files with defaults for every
// field; validation happens once at configuration-build time, never during a
// clustering run.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all tunable parameters of the clustering pipeline.
type Config struct {
	// Blur parameters control the Gaussian smearing applied to the charge
	// image before clustering.
	Blur struct {
		// WireRadius and TickRadius are the base blur radii in bins,
		// before direction adaptation.
		WireRadius int `yaml:"wireRadius"`
		TickRadius int `yaml:"tickRadius"`

		// WireSigma and TickSigma are the base Gaussian sigmas. Setting
		// both to zero disables blurring entirely.
		WireSigma float64 `yaml:"wireSigma"`
		TickSigma float64 `yaml:"tickSigma"`

		// TickWidthRescale divides a hit's width to obtain its kernel
		// tier.
		TickWidthRescale float64 `yaml:"tickWidthRescale"`

		// MaxTickWidthScale caps the computed tier.
		MaxTickWidthScale int `yaml:"maxTickWidthScale"`

		// Kernels lists the tiers for which kernels are prebuilt. The
		// value 1 must be present.
		Kernels []int `yaml:"kernels"`
	} `yaml:"blur"`

	// Cluster parameters control seeded region growing on the blurred
	// image.
	Cluster struct {
		// WireDistance and TickDistance bound the rectangular
		// neighborhood searched when growing a cluster.
		WireDistance int `yaml:"wireDistance"`
		TickDistance int `yaml:"tickDistance"`

		// NeighboursThreshold is the used-neighbor count a hole must
		// exceed to be filled into a cluster.
		NeighboursThreshold int `yaml:"neighboursThreshold"`

		// MinNeighbours is the used-neighbor count below which a
		// clustered cell is pruned as a peninsula.
		MinNeighbours int `yaml:"minNeighbours"`

		// MinSize is the minimum number of cells for a cell cluster and
		// the minimum number of real hits for an emitted cluster.
		MinSize int `yaml:"minSize"`

		// MinSeed is the blurred charge below which no new cluster is
		// seeded.
		MinSeed float64 `yaml:"minSeed"`

		// TimeThreshold is the time-coincidence window, in ticks, for
		// admitting real hits into a cluster.
		TimeThreshold float64 `yaml:"timeThreshold"`

		// ChargeThreshold is the blurred charge a candidate cell must
		// exceed to join a cluster.
		ChargeThreshold float64 `yaml:"chargeThreshold"`
	} `yaml:"cluster"`
}

// Default returns a configuration with default values.
func Default() *Config {
	cfg := &Config{}

	cfg.Blur.WireRadius = 6
	cfg.Blur.TickRadius = 12
	cfg.Blur.WireSigma = 4
	cfg.Blur.TickSigma = 6
	cfg.Blur.TickWidthRescale = 4.0
	cfg.Blur.MaxTickWidthScale = 4
	cfg.Blur.Kernels = []int{1, 2, 3, 4}

	cfg.Cluster.WireDistance = 2
	cfg.Cluster.TickDistance = 2
	cfg.Cluster.NeighboursThreshold = 4
	cfg.Cluster.MinNeighbours = 2
	cfg.Cluster.MinSize = 2
	cfg.Cluster.MinSeed = 0.1
	cfg.Cluster.TimeThreshold = 500
	cfg.Cluster.ChargeThreshold = 0.07

	return cfg
}

// Load reads a configuration from a YAML file and validates it. If the file
// does not exist, the default configuration is returned.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func Save(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for fatal errors. The kernel tier set
// must contain 1: tier resolution falls back downward through the configured
// tiers and relies on 1 as its floor.
func (c *Config) Validate() error {
	hasTierOne := false
	for _, k := range c.Blur.Kernels {
		if k == 1 {
			hasTierOne = true
		}
		if k < 1 {
			return fmt.Errorf("kernel tiers must be positive, got %d", k)
		}
	}
	if !hasTierOne {
		return fmt.Errorf("kernel tier set %v must contain 1", c.Blur.Kernels)
	}

	if c.Blur.TickWidthRescale <= 0 {
		return fmt.Errorf("tickWidthRescale must be positive, got %f", c.Blur.TickWidthRescale)
	}
	if c.Blur.MaxTickWidthScale < 1 {
		return fmt.Errorf("maxTickWidthScale must be at least 1, got %d", c.Blur.MaxTickWidthScale)
	}
	if c.Blur.WireRadius < 0 || c.Blur.TickRadius < 0 {
		return fmt.Errorf("blur radii must be non-negative, got wire=%d tick=%d",
			c.Blur.WireRadius, c.Blur.TickRadius)
	}
	if c.Cluster.MinSize < 1 {
		return fmt.Errorf("minSize must be at least 1, got %d", c.Cluster.MinSize)
	}
	if c.Cluster.WireDistance < 0 || c.Cluster.TickDistance < 0 {
		return fmt.Errorf("clustering distances must be non-negative, got wire=%d tick=%d",
			c.Cluster.WireDistance, c.Cluster.TickDistance)
	}

	return nil
}
