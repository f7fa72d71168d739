package evo

import (
	"fmt"
	"math"

	"evolvo/internal/rng"
)

const (
	DefaultMaxRestarts = 1000
	DefaultMaxAttempts = 1000
)

// AttemptRecorder receives the number of mutations spent developing one
// constrained child and whether the child was accepted.
type AttemptRecorder interface {
	RecordAttempts(strategy string, attempts int, accepted bool)
}

// ConstrainedStrategy breeds like OrdinaryStrategy but only admits children
// whose magnitude lies in the inclusive window of the settings. The elite in
// slot 0 is carried untouched.
//
// Each child is found by rejection sampling along one chain of mutations
// starting at the unmutated child: up to MaxRestarts rounds of MaxAttempts
// mutations each, stopping at the first candidate inside the window. A round
// continues from the last rejected candidate, so the chain can walk up to
// MaxRestarts*MaxAttempts steps away from its origin.
type ConstrainedStrategy[P ConstrainedPhenotype[P], S WindowSettings] struct {
	MaxRestarts int
	MaxAttempts int
	Recorder    AttemptRecorder
}

func (ConstrainedStrategy[P, S]) Name() string {
	return "constrained"
}

func (s ConstrainedStrategy[P, S]) Breed(parents []P, src *rng.Source, settings S) ([]P, error) {
	if err := checkBreedInput(len(parents), src, settings.NumChildren()); err != nil {
		return nil, err
	}
	window := magnitudeWindow{min: settings.MinMagnitude(), max: settings.MaxMagnitude()}
	if err := window.validate(); err != nil {
		return nil, err
	}

	elite := parents[0]
	children := make([]P, 0, settings.NumChildren())
	children = append(children, elite)
	for _, parent := range parents[1:] {
		child, err := s.develop(elite.Crossover(parent), src, window)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", len(children), err)
		}
		children = append(children, child)
	}
	for len(children) < settings.NumChildren() {
		child, err := s.develop(elite, src, window)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", len(children), err)
		}
		children = append(children, child)
	}
	return children, nil
}

func (s ConstrainedStrategy[P, S]) develop(origin P, src *rng.Source, window magnitudeWindow) (P, error) {
	restarts, attempts := s.budget()
	spent := 0
	candidate := origin
	for round := 0; round < restarts; round++ {
		for attempt := 0; attempt < attempts; attempt++ {
			candidate = candidate.Mutate(src)
			spent++
			if window.contains(candidate.Magnitude()) {
				s.record(spent, true)
				return candidate, nil
			}
		}
	}
	s.record(spent, false)

	var zero P
	return zero, fmt.Errorf("%w: no magnitude in [%g, %g] after %d mutations",
		ErrConstraintUnsatisfiable, window.min, window.max, spent)
}

func (s ConstrainedStrategy[P, S]) budget() (int, int) {
	restarts := s.MaxRestarts
	if restarts <= 0 {
		restarts = DefaultMaxRestarts
	}
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	return restarts, attempts
}

func (s ConstrainedStrategy[P, S]) record(attempts int, accepted bool) {
	if s.Recorder != nil {
		s.Recorder.RecordAttempts(s.Name(), attempts, accepted)
	}
}

type magnitudeWindow struct {
	min float64
	max float64
}

func (w magnitudeWindow) validate() error {
	if math.IsNaN(w.min) || math.IsNaN(w.max) || w.min > w.max {
		return fmt.Errorf("%w: magnitude window [%g, %g]", ErrConfiguration, w.min, w.max)
	}
	return nil
}

func (w magnitudeWindow) contains(magnitude float64) bool {
	return magnitude >= w.min && magnitude <= w.max
}
