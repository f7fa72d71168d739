package challenge

import (
	"context"

	"evolvo/internal/phenotype"
)

// PointTarget moves a 2D point toward a target point. The magnitude used by
// windowed runs is the distance from the origin.
type PointTarget struct{}

func NewPointTarget() PointTarget {
	return PointTarget{}
}

func (PointTarget) Name() string { return "point-target" }

func (PointTarget) Description() string {
	return "evolve a 2D point toward a target point, optionally inside an origin-distance window"
}

func (c PointTarget) Run(ctx context.Context, req Request) (Outcome, error) {
	strategy, window, err := resolveStrategy(req, nil)
	if err != nil {
		return Outcome{}, err
	}
	start, err := coordinates(req.Start, []float64{0, 0}, "start")
	if err != nil {
		return Outcome{}, err
	}
	target, err := coordinates(req.Target, []float64{3, 4}, "target")
	if err != nil {
		return Outcome{}, err
	}

	goal := phenotype.NewPoint(target[0], target[1], 0)
	score := func(p phenotype.Point) float64 {
		return inverseSquaredError(p.DistanceTo(goal))
	}
	result, err := evolve(ctx, req, window, phenotype.NewPoint(start[0], start[1], req.Step), score)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Challenge:   c.Name(),
		Strategy:    strategy,
		Start:       start,
		Target:      target,
		Window:      window,
		Winner:      result.Winner.Describe(),
		Coordinates: []float64{result.Winner.X(), result.Winner.Y()},
		Magnitude:   result.Winner.Magnitude(),
		Score:       result.Score,
	}, nil
}
