// Package challenge defines named optimization problems that can be run by
// name from the platform and the CLI.
package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"evolvo/internal/evo"
	"evolvo/internal/rng"
)

const (
	StrategyOrdinary    = "ordinary"
	StrategyConstrained = "constrained"
)

// Window is an inclusive magnitude interval.
type Window struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Request carries everything one run needs. Zero-length Start and Target and
// a nil Window select the challenge defaults; Strategy "ordinary" forces an
// unconstrained run even when the challenge has a default window.
type Request struct {
	Options     evo.Options
	Strategy    string
	Start       []float64
	Target      []float64
	Window      *Window
	Step        float64
	MaxRestarts int
	MaxAttempts int

	Source    *rng.Source
	Logger    *slog.Logger
	Observers []evo.Observer
	Recorder  evo.AttemptRecorder
}

// Outcome reports the winner of a run together with the effective inputs.
type Outcome struct {
	Challenge   string    `json:"challenge"`
	Strategy    string    `json:"strategy"`
	Start       []float64 `json:"start"`
	Target      []float64 `json:"target"`
	Window      *Window   `json:"window,omitempty"`
	Winner      string    `json:"winner"`
	Coordinates []float64 `json:"coordinates"`
	Magnitude   float64   `json:"magnitude"`
	Score       float64   `json:"score"`
}

type Challenge interface {
	Name() string
	Description() string
	Run(ctx context.Context, req Request) (Outcome, error)
}

// inverseSquaredError rewards closeness to the target. An exact hit, or a
// distance whose inverse square overflows, scores the largest finite float so
// rankings and stored histories stay finite.
func inverseSquaredError(distance float64) float64 {
	score := 1 / (distance * distance)
	if math.IsInf(score, 1) {
		return math.MaxFloat64
	}
	return score
}

func resolveStrategy(req Request, defaultWindow *Window) (string, *Window, error) {
	window := req.Window
	if window == nil {
		window = defaultWindow
	}
	switch req.Strategy {
	case "":
		if window == nil {
			return StrategyOrdinary, nil, nil
		}
		return StrategyConstrained, window, nil
	case StrategyOrdinary:
		return StrategyOrdinary, nil, nil
	case StrategyConstrained:
		if window == nil {
			return "", nil, fmt.Errorf("%w: constrained strategy requires a magnitude window", evo.ErrConfiguration)
		}
		return StrategyConstrained, window, nil
	default:
		return "", nil, fmt.Errorf("%w: unknown strategy %q", evo.ErrConfiguration, req.Strategy)
	}
}

func launcherOptions(req Request) []evo.LauncherOption {
	opts := []evo.LauncherOption{evo.WithLogger(req.Logger)}
	for _, observer := range req.Observers {
		opts = append(opts, evo.WithObserver(observer))
	}
	return opts
}

// evolve runs start with the strategy selected by window.
func evolve[P evo.ConstrainedPhenotype[P]](ctx context.Context, req Request, window *Window, start P, score evo.ScoreFunc[P]) (evo.Result[P], error) {
	src := req.Source
	if src == nil {
		src = rng.New()
	}
	if window == nil {
		launcher, err := evo.NewLauncher[P](req.Options, launcherOptions(req)...)
		if err != nil {
			return evo.Result[P]{}, err
		}
		return launcher.Run(ctx, start, evo.OrdinaryStrategy[P, evo.Options]{}, score, src)
	}

	settings, err := evo.NewConstrainedOptions(req.Options, window.Min, window.Max)
	if err != nil {
		return evo.Result[P]{}, err
	}
	launcher, err := evo.NewLauncher[P](settings, launcherOptions(req)...)
	if err != nil {
		return evo.Result[P]{}, err
	}
	strategy := evo.ConstrainedStrategy[P, evo.ConstrainedOptions]{
		MaxRestarts: req.MaxRestarts,
		MaxAttempts: req.MaxAttempts,
		Recorder:    req.Recorder,
	}
	return launcher.Run(ctx, start, strategy, score, src)
}

func coordinates(values []float64, defaults []float64, name string) ([]float64, error) {
	if len(values) == 0 {
		return append([]float64(nil), defaults...), nil
	}
	if len(values) != len(defaults) {
		return nil, fmt.Errorf("%w: %s needs %d coordinates, got %d", evo.ErrConfiguration, name, len(defaults), len(values))
	}
	return append([]float64(nil), values...), nil
}
