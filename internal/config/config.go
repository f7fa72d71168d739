// Package config loads run and sweep configuration files.
//
// Files are YAML or JSON. Values load in the order defaults, file,
// environment, and are validated last.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGenerations = 100
	DefaultParents     = 2
	DefaultChildren    = 20
	DefaultLogLevel    = 0
	DefaultWorkers     = 4

	envPrefix = "EVOLVO_"
)

var ErrInvalidConfig = errors.New("invalid config")

type WindowConfig struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max" validate:"gtefield=Min"`
}

// RunConfig describes one challenge run.
type RunConfig struct {
	RunID       string        `yaml:"run_id,omitempty" json:"run_id,omitempty"`
	Challenge   string        `yaml:"challenge" json:"challenge" validate:"required"`
	Strategy    string        `yaml:"strategy,omitempty" json:"strategy,omitempty" validate:"omitempty,oneof=ordinary constrained"`
	Generations int           `yaml:"generations" json:"generations" validate:"gte=1"`
	Parents     int           `yaml:"parents" json:"parents" validate:"gte=1"`
	Children    int           `yaml:"children" json:"children" validate:"gtefield=Parents"`
	LogLevel    int           `yaml:"log_level" json:"log_level" validate:"gte=0"`
	Seed        int64         `yaml:"seed,omitempty" json:"seed,omitempty"`
	Start       []float64     `yaml:"start,omitempty" json:"start,omitempty"`
	Target      []float64     `yaml:"target,omitempty" json:"target,omitempty"`
	Window      *WindowConfig `yaml:"window,omitempty" json:"window,omitempty"`
	Step        float64       `yaml:"step,omitempty" json:"step,omitempty" validate:"gte=0"`
	MaxRestarts int           `yaml:"max_restarts,omitempty" json:"max_restarts,omitempty" validate:"gte=0"`
	MaxAttempts int           `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty" validate:"gte=0"`
}

// SweepConfig lists independent runs executed concurrently. Each seed in
// Seeds adds a copy of Base with that seed.
type SweepConfig struct {
	ID      string      `yaml:"id,omitempty" json:"id,omitempty"`
	Workers int         `yaml:"workers" json:"workers" validate:"gte=1"`
	Base    *RunConfig  `yaml:"base,omitempty" json:"base,omitempty"`
	Seeds   []int64     `yaml:"seeds,omitempty" json:"seeds,omitempty"`
	Runs    []RunConfig `yaml:"runs,omitempty" json:"runs,omitempty" validate:"dive"`
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		Generations: DefaultGenerations,
		Parents:     DefaultParents,
		Children:    DefaultChildren,
		LogLevel:    DefaultLogLevel,
	}
}

func DefaultSweepConfig() SweepConfig {
	return SweepConfig{Workers: DefaultWorkers}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func (c RunConfig) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks the sweep and every run it expands to.
func (c SweepConfig) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(c.Seeds) > 0 && c.Base == nil {
		return fmt.Errorf("%w: seeds require a base run", ErrInvalidConfig)
	}
	runs := c.Expand()
	if len(runs) == 0 {
		return fmt.Errorf("%w: sweep has no runs", ErrInvalidConfig)
	}
	for i, run := range runs {
		if err := run.Validate(); err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
	}
	return nil
}

// Expand returns the explicit runs followed by one Base copy per seed.
func (c SweepConfig) Expand() []RunConfig {
	runs := make([]RunConfig, 0, len(c.Runs)+len(c.Seeds))
	runs = append(runs, c.Runs...)
	if c.Base == nil {
		return runs
	}
	for _, seed := range c.Seeds {
		run := *c.Base
		run.Seed = seed
		run.RunID = ""
		runs = append(runs, run)
	}
	return runs
}

// LoadRunConfig loads path over DefaultRunConfig. An empty path yields the
// defaults plus environment overrides.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := loadRunConfigFromEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadSweepConfig loads a sweep file. Runs missing engine options inherit
// the defaults.
func LoadSweepConfig(path string) (SweepConfig, error) {
	cfg := DefaultSweepConfig()
	if err := loadConfigFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config file: %w", err)
	}
	if cfg.Base != nil {
		fillRunDefaults(cfg.Base)
	}
	for i := range cfg.Runs {
		fillRunDefaults(&cfg.Runs[i])
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func fillRunDefaults(run *RunConfig) {
	if run.Generations == 0 {
		run.Generations = DefaultGenerations
	}
	if run.Parents == 0 {
		run.Parents = DefaultParents
	}
	if run.Children == 0 {
		run.Children = DefaultChildren
	}
}

func loadConfigFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return json.Unmarshal(data, out)
	}
	// YAML is a superset of JSON for these files; fall back for error text.
	if err := yaml.Unmarshal(data, out); err != nil {
		if jsonErr := json.Unmarshal(data, out); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadRunConfigFromEnv(cfg *RunConfig) error {
	if v := os.Getenv(envPrefix + "CHALLENGE"); v != "" {
		cfg.Challenge = v
	}
	if v := os.Getenv(envPrefix + "STRATEGY"); v != "" {
		cfg.Strategy = v
	}
	for _, field := range []struct {
		key string
		dst *int
	}{
		{envPrefix + "GENERATIONS", &cfg.Generations},
		{envPrefix + "PARENTS", &cfg.Parents},
		{envPrefix + "CHILDREN", &cfg.Children},
		{envPrefix + "LOG_LEVEL", &cfg.LogLevel},
	} {
		if err := setIntFromEnv(field.key, field.dst); err != nil {
			return err
		}
	}
	if v := os.Getenv(envPrefix + "SEED"); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sSEED=%q is not an integer", ErrInvalidConfig, envPrefix, v)
		}
		cfg.Seed = i
	}
	return nil
}

func setIntFromEnv(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
	}
	*dst = i
	return nil
}
