// Package config loads the tracker configuration from YAML over built-in
// defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/venus-observer/model"
)

// AtmosphericModel toggles the Venus atmosphere estimator.
type AtmosphericModel struct {
	Enabled bool `yaml:"enabled"`
}

// SatelliteTLE defines an auxiliary TLE-tracked body.
type SatelliteTLE struct {
	Name  string `yaml:"name"`
	Line1 string `yaml:"line1"`
	Line2 string `yaml:"line2"`
}

// Config is the surface consumed by the observation pipeline.
type Config struct {
	Location            model.Location   `yaml:"location"`
	TrackingInterval    int              `yaml:"tracking_interval"` // seconds
	CalculateAllPlanets bool             `yaml:"calculate_all_planets"`
	AtmosphericModel    AtmosphericModel `yaml:"atmospheric_model"`
	OutputFile          string           `yaml:"output_file"`
	Satellites          []SatelliteTLE   `yaml:"satellites"`
}

// Default returns the built-in configuration: the Royal Observatory
// Greenwich site, one-minute cadence, all planets, atmosphere enabled.
func Default() Config {
	return Config{
		Location: model.Location{
			Name:      "Royal Observatory Greenwich",
			Latitude:  51.4778,
			Longitude: -0.0015,
			Elevation: 0,
		},
		TrackingInterval:    60,
		CalculateAllPlanets: true,
		AtmosphericModel:    AtmosphericModel{Enabled: true},
		OutputFile:          "data/venus_data.csv",
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file
// yields the defaults; a malformed file or invalid values yield an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configured values for basic sanity.
func (c Config) Validate() error {
	if c.Location.Latitude < -90 || c.Location.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Location.Latitude)
	}
	if c.Location.Longitude < -180 || c.Location.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Location.Longitude)
	}
	if c.TrackingInterval <= 0 {
		return fmt.Errorf("tracking_interval %d must be positive", c.TrackingInterval)
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output_file must not be empty")
	}
	for _, sat := range c.Satellites {
		if sat.Name == "" {
			return fmt.Errorf("satellite entries require a name")
		}
	}
	return nil
}
