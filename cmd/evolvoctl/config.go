package main

import (
	"github.com/spf13/pflag"

	"evolvo/internal/config"
	"evolvo/pkg/evolvo"
)

// runFlags mirrors config.RunConfig; only flags set on the command line
// override file and environment values.
type runFlags struct {
	configPath  string
	runID       string
	challenge   string
	strategy    string
	generations int
	parents     int
	children    int
	logLevel    int
	seed        int64
	start       []float64
	target      []float64
	windowMin   float64
	windowMax   float64
	step        float64
	maxRestarts int
	maxAttempts int
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "YAML or JSON run config file")
	fs.StringVar(&f.runID, "run-id", "", "explicit run id (default: generated)")
	fs.StringVar(&f.challenge, "challenge", "x-target", "challenge name")
	fs.StringVar(&f.strategy, "strategy", "", "ordinary|constrained (default: by challenge)")
	fs.IntVar(&f.generations, "gens", config.DefaultGenerations, "number of generations")
	fs.IntVar(&f.parents, "parents", config.DefaultParents, "parents kept per generation")
	fs.IntVar(&f.children, "children", config.DefaultChildren, "children bred per generation")
	fs.IntVar(&f.logLevel, "log-level", config.DefaultLogLevel, "0 silent, 1 per generation, 2 per candidate")
	fs.Int64Var(&f.seed, "seed", 0, "random seed (0 draws one)")
	fs.Float64SliceVar(&f.start, "start", nil, "start coordinates")
	fs.Float64SliceVar(&f.target, "target", nil, "target coordinates")
	fs.Float64Var(&f.windowMin, "window-min", 0, "inclusive minimum magnitude")
	fs.Float64Var(&f.windowMax, "window-max", 0, "inclusive maximum magnitude")
	fs.Float64Var(&f.step, "step", 0, "mutation step for point challenges")
	fs.IntVar(&f.maxRestarts, "max-restarts", 0, "constrained restarts per child (0 uses the default)")
	fs.IntVar(&f.maxAttempts, "max-attempts", 0, "constrained attempts per restart (0 uses the default)")
}

// resolve loads the config file, applies changed flags and validates.
func (f *runFlags) resolve(fs *pflag.FlagSet) (config.RunConfig, error) {
	cfg, err := config.LoadRunConfig(f.configPath)
	if err != nil {
		return config.RunConfig{}, err
	}
	if cfg.Challenge == "" {
		cfg.Challenge = f.challenge
	}

	if fs.Changed("run-id") {
		cfg.RunID = f.runID
	}
	if fs.Changed("challenge") {
		cfg.Challenge = f.challenge
	}
	if fs.Changed("strategy") {
		cfg.Strategy = f.strategy
	}
	if fs.Changed("gens") {
		cfg.Generations = f.generations
	}
	if fs.Changed("parents") {
		cfg.Parents = f.parents
	}
	if fs.Changed("children") {
		cfg.Children = f.children
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("seed") {
		cfg.Seed = f.seed
	}
	if fs.Changed("start") {
		cfg.Start = f.start
	}
	if fs.Changed("target") {
		cfg.Target = f.target
	}
	if fs.Changed("window-min") || fs.Changed("window-max") {
		window := config.WindowConfig{}
		if cfg.Window != nil {
			window = *cfg.Window
		}
		if fs.Changed("window-min") {
			window.Min = f.windowMin
		}
		if fs.Changed("window-max") {
			window.Max = f.windowMax
		}
		cfg.Window = &window
	}
	if fs.Changed("step") {
		cfg.Step = f.step
	}
	if fs.Changed("max-restarts") {
		cfg.MaxRestarts = f.maxRestarts
	}
	if fs.Changed("max-attempts") {
		cfg.MaxAttempts = f.maxAttempts
	}

	if err := cfg.Validate(); err != nil {
		return config.RunConfig{}, err
	}
	return cfg, nil
}

func toRunRequest(cfg config.RunConfig) evolvo.RunRequest {
	req := evolvo.RunRequest{
		RunID:       cfg.RunID,
		Challenge:   cfg.Challenge,
		Strategy:    cfg.Strategy,
		Generations: cfg.Generations,
		Parents:     cfg.Parents,
		Children:    cfg.Children,
		LogLevel:    cfg.LogLevel,
		Seed:        cfg.Seed,
		Start:       cfg.Start,
		Target:      cfg.Target,
		Step:        cfg.Step,
		MaxRestarts: cfg.MaxRestarts,
		MaxAttempts: cfg.MaxAttempts,
	}
	if cfg.Window != nil {
		req.Window = &evolvo.Window{Min: cfg.Window.Min, Max: cfg.Window.Max}
	}
	return req
}
