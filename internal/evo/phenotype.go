package evo

import "evolvo/internal/rng"

// Phenotype is a candidate solution. Implementations are values: Crossover and
// Mutate return new values and never touch state outside the receiver, so a
// generation replayed with the same Source reproduces the same candidates.
type Phenotype[P any] interface {
	Crossover(other P) P
	Mutate(src *rng.Source) P
	Describe() string
}

// ConstrainedPhenotype exposes a scalar magnitude used to restrict the search
// domain of ConstrainedStrategy. Magnitude must be a pure function of the value.
type ConstrainedPhenotype[P any] interface {
	Phenotype[P]
	Magnitude() float64
}

// ScoreFunc rates a phenotype; higher is better.
type ScoreFunc[P any] func(phenotype P) float64

// Result pairs a phenotype with its score.
type Result[P any] struct {
	Winner P
	Score  float64
}
