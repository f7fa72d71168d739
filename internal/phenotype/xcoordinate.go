package phenotype

import (
	"fmt"
	"math"

	"evolvo/internal/rng"
)

// XCoordinate is a position on the real line.
type XCoordinate struct {
	x float64
}

func NewXCoordinate(x float64) XCoordinate {
	return XCoordinate{x: x}
}

func (p XCoordinate) X() float64 {
	return p.x
}

// Crossover blends to the midpoint.
func (p XCoordinate) Crossover(other XCoordinate) XCoordinate {
	return XCoordinate{x: (p.x + other.x) / 2}
}

// Mutate shifts x by a uniform step in [-1, 1).
func (p XCoordinate) Mutate(src *rng.Source) XCoordinate {
	delta := src.FetchUniform(-100, 100, 1)[0]
	return XCoordinate{x: p.x + delta/100}
}

func (p XCoordinate) Describe() string {
	return fmt.Sprintf("x: %g", p.x)
}

// Magnitude is the distance from the origin.
func (p XCoordinate) Magnitude() float64 {
	return math.Abs(p.x)
}
