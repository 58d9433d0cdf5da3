// Package config handles hazel.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents a hazel.toml runtime configuration.
type Config struct {
	Collector Collector `toml:"collector"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the hazel.toml file (set at load time).
	Dir string `toml:"-"`
}

// Collector configures the engine's garbage collector.
type Collector struct {
	// AutoInterval is the interval between automatic collection cycles,
	// in Go duration syntax ("30s", "1m"). Empty disables auto-collect.
	AutoInterval string `toml:"auto-interval"`

	// DeferralWarning logs a warning once a weak handle has deferred its
	// finalization this many times. Zero disables the warning.
	DeferralWarning int `toml:"deferral-warning"`
}

// Log configures logging output.
type Log struct {
	// Verbosity is the commonlog verbosity (0 = errors and warnings,
	// higher is chattier).
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no hazel.toml exists.
func Default() *Config {
	return &Config{
		Collector: Collector{
			AutoInterval:    "30s",
			DeferralWarning: 100,
		},
		Log: Log{Verbosity: 0},
	}
}

// Load parses a hazel.toml file from the given directory. A missing
// file yields the defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "hazel.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c := Default()
			c.Dir = dir
			return c, nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Dir = dir

	if _, err := c.AutoInterval(); err != nil {
		return nil, fmt.Errorf("invalid collector.auto-interval in %s: %w", path, err)
	}
	if c.Collector.DeferralWarning < 0 {
		return nil, fmt.Errorf("collector.deferral-warning must be >= 0 in %s", path)
	}
	return c, nil
}

// AutoInterval returns the parsed auto-collect interval. A zero duration
// means auto-collect is disabled.
func (c *Config) AutoInterval() (time.Duration, error) {
	if c.Collector.AutoInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Collector.AutoInterval)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative interval %q", c.Collector.AutoInterval)
	}
	return d, nil
}
