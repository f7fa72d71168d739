package challenge

import (
	"context"

	"evolvo/internal/phenotype"
)

// XCoordinate moves a point on the real line toward a target, scoring
// 1/(x-target)^2.
type XCoordinate struct {
	name          string
	description   string
	start         float64
	target        float64
	defaultWindow *Window
}

// NewXTarget is the unconstrained variant: start at 0, target 2.
func NewXTarget() XCoordinate {
	return XCoordinate{
		name:        "x-target",
		description: "evolve x toward a target on the real line",
		start:       0,
		target:      2,
	}
}

// NewXWindow keeps |x| inside [3, 10] while chasing a target of 2, so the
// optimum sits on the window boundary.
func NewXWindow() XCoordinate {
	return XCoordinate{
		name:          "x-window",
		description:   "evolve x toward a target while |x| stays inside a magnitude window",
		start:         7,
		target:        2,
		defaultWindow: &Window{Min: 3, Max: 10},
	}
}

func (c XCoordinate) Name() string        { return c.name }
func (c XCoordinate) Description() string { return c.description }

func (c XCoordinate) Run(ctx context.Context, req Request) (Outcome, error) {
	strategy, window, err := resolveStrategy(req, c.defaultWindow)
	if err != nil {
		return Outcome{}, err
	}
	start, err := coordinates(req.Start, []float64{c.start}, "start")
	if err != nil {
		return Outcome{}, err
	}
	target, err := coordinates(req.Target, []float64{c.target}, "target")
	if err != nil {
		return Outcome{}, err
	}

	score := func(p phenotype.XCoordinate) float64 {
		return inverseSquaredError(p.X() - target[0])
	}
	result, err := evolve(ctx, req, window, phenotype.NewXCoordinate(start[0]), score)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Challenge:   c.name,
		Strategy:    strategy,
		Start:       start,
		Target:      target,
		Window:      window,
		Winner:      result.Winner.Describe(),
		Coordinates: []float64{result.Winner.X()},
		Magnitude:   result.Winner.Magnitude(),
		Score:       result.Score,
	}, nil
}
