package evo

import (
	"fmt"

	"evolvo/internal/rng"
)

// Strategy turns a ranked parent set into the next candidate pool.
type Strategy[P any, S Settings] interface {
	Name() string
	Breed(parents []P, src *rng.Source, settings S) ([]P, error)
}

// OrdinaryStrategy breeds without constraints. Slot 0 carries the elite
// verbatim, slots 1..len(parents)-1 hold mutated crossovers of the elite with
// each remaining parent, and every further slot is an independent mutation of
// the elite.
type OrdinaryStrategy[P Phenotype[P], S Settings] struct{}

func (OrdinaryStrategy[P, S]) Name() string {
	return "ordinary"
}

func (OrdinaryStrategy[P, S]) Breed(parents []P, src *rng.Source, settings S) ([]P, error) {
	if err := checkBreedInput(len(parents), src, settings.NumChildren()); err != nil {
		return nil, err
	}

	elite := parents[0]
	children := make([]P, 0, settings.NumChildren())
	children = append(children, elite)
	for _, parent := range parents[1:] {
		children = append(children, elite.Crossover(parent).Mutate(src))
	}
	for len(children) < settings.NumChildren() {
		children = append(children, elite.Mutate(src))
	}
	return children, nil
}

func checkBreedInput(numParents int, src *rng.Source, numChildren int) error {
	if numParents == 0 {
		return fmt.Errorf("%w: parent set is empty", ErrInvalidInput)
	}
	if src == nil {
		return fmt.Errorf("%w: random source is required", ErrInvalidInput)
	}
	if numParents > numChildren {
		return fmt.Errorf("%w: %d parents exceed %d children", ErrInvalidInput, numParents, numChildren)
	}
	return nil
}
