// Package config loads signal settings from a YAML file.
//
// A config file looks like:
//
//	initial: red
//	cycle:
//	  min: 4s
//	  max: 6s
//	  seed: 0   # 0 means nondeterministic
//
// All fields are optional; missing fields take the defaults from [Default].
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/creachadair/stoplight"
)

// Config holds the settings for one signal.
type Config struct {
	Initial stoplight.Phase `yaml:"initial"`
	Cycle   Cycle           `yaml:"cycle"`
}

// Cycle holds the bounds of the cycle duration.
type Cycle struct {
	Min  Duration `yaml:"min"`
	Max  Duration `yaml:"max"`
	Seed uint64   `yaml:"seed"`
}

// Duration is a [time.Duration] that is encoded in YAML as a string like
// "4s" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements [yaml.Unmarshaler].
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements [yaml.Marshaler].
func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// Default returns the default settings: start red, hold each phase 4–6s.
func Default() *Config {
	return &Config{
		Initial: stoplight.Red,
		Cycle: Cycle{
			Min: Duration(stoplight.DefaultMinCycle),
			Max: Duration(stoplight.DefaultMaxCycle),
		},
	}
}

// Load reads the config file at path and applies it over the defaults.
// If path is empty, Load returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports an error if c does not describe a usable signal.
func (c *Config) Validate() error {
	var errs []error
	if c.Initial != stoplight.Red && c.Initial != stoplight.Green {
		errs = append(errs, fmt.Errorf("invalid initial phase %d", c.Initial))
	}
	if c.Cycle.Min <= 0 {
		errs = append(errs, fmt.Errorf("cycle min must be positive, got %v", time.Duration(c.Cycle.Min)))
	}
	if c.Cycle.Max <= c.Cycle.Min {
		errs = append(errs, fmt.Errorf("cycle max %v must exceed min %v",
			time.Duration(c.Cycle.Max), time.Duration(c.Cycle.Min)))
	}
	return errors.Join(errs...)
}

// Options returns controller options for c. The caller may set the logging
// and change hooks on the result.
func (c *Config) Options() *stoplight.Options {
	return &stoplight.Options{
		Initial: c.Initial,
		Cycle:   stoplight.NewUniform(time.Duration(c.Cycle.Min), time.Duration(c.Cycle.Max), c.Cycle.Seed),
	}
}
