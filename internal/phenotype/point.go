package phenotype

import (
	"fmt"
	"math"

	"evolvo/internal/rng"
)

const DefaultPointStep = 1.0

// Point is a 2D position mutated by independent per-axis uniform steps.
type Point struct {
	x    float64
	y    float64
	step float64
}

// NewPoint returns a point that mutates by up to step along each axis. A
// non-positive step falls back to DefaultPointStep.
func NewPoint(x, y, step float64) Point {
	if step <= 0 || math.IsNaN(step) {
		step = DefaultPointStep
	}
	return Point{x: x, y: y, step: step}
}

func (p Point) X() float64 { return p.x }
func (p Point) Y() float64 { return p.y }

func (p Point) Step() float64 {
	if p.step <= 0 {
		return DefaultPointStep
	}
	return p.step
}

// Crossover moves to the midpoint and keeps the receiver's step.
func (p Point) Crossover(other Point) Point {
	return Point{x: (p.x + other.x) / 2, y: (p.y + other.y) / 2, step: p.step}
}

func (p Point) Mutate(src *rng.Source) Point {
	step := p.Step()
	delta := src.FetchUniform(-step, step, 2)
	return Point{x: p.x + delta[0], y: p.y + delta[1], step: p.step}
}

func (p Point) Describe() string {
	return fmt.Sprintf("(%g, %g)", p.x, p.y)
}

// Magnitude is the Euclidean distance from the origin.
func (p Point) Magnitude() float64 {
	return math.Hypot(p.x, p.y)
}

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(other Point) float64 {
	return math.Hypot(p.x-other.x, p.y-other.y)
}
