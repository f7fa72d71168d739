package evo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evolvo/internal/phenotype"
	"evolvo/internal/rng"
)

type windowStrategy = ConstrainedStrategy[phenotype.XCoordinate, ConstrainedOptions]

type attemptLog struct {
	calls    int
	accepted int
	rejected int
	attempts []int
}

func (l *attemptLog) RecordAttempts(strategy string, attempts int, accepted bool) {
	l.calls++
	l.attempts = append(l.attempts, attempts)
	if accepted {
		l.accepted++
	} else {
		l.rejected++
	}
}

func mustWindow(t *testing.T, opts Options, lo, hi float64) ConstrainedOptions {
	t.Helper()
	window, err := NewConstrainedOptions(opts, lo, hi)
	require.NoError(t, err)
	return window
}

func TestConstrainedChildrenStayInWindow(t *testing.T) {
	settings := mustWindow(t, mustOptions(t, 1, 2, 40, 0), 2.5, 3.5)
	parents := []phenotype.XCoordinate{phenotype.NewXCoordinate(2), phenotype.NewXCoordinate(3)}

	children, err := windowStrategy{}.Breed(parents, rng.NewSeeded(8), settings)
	require.NoError(t, err)
	require.Len(t, children, 40)

	// the elite is carried untouched even outside the window
	assert.Equal(t, parents[0], children[0])
	for i, child := range children[1:] {
		m := child.Magnitude()
		assert.GreaterOrEqual(t, m, 2.5, "child %d", i+1)
		assert.LessOrEqual(t, m, 3.5, "child %d", i+1)
	}
}

func TestConstrainedRecordsAttempts(t *testing.T) {
	log := &attemptLog{}
	settings := mustWindow(t, mustOptions(t, 1, 1, 10, 0), 0, 100)
	strategy := windowStrategy{Recorder: log}

	_, err := strategy.Breed([]phenotype.XCoordinate{phenotype.NewXCoordinate(5)}, rng.NewSeeded(4), settings)
	require.NoError(t, err)
	assert.Equal(t, 9, log.calls)
	assert.Equal(t, 9, log.accepted)
	for _, attempts := range log.attempts {
		assert.Equal(t, 1, attempts)
	}
}

func TestConstrainedUnsatisfiableWithinBudget(t *testing.T) {
	log := &attemptLog{}
	settings := mustWindow(t, mustOptions(t, 1, 1, 4, 0), 1e9, 2e9)
	strategy := windowStrategy{MaxRestarts: 10, MaxAttempts: 10, Recorder: log}

	children, err := strategy.Breed([]phenotype.XCoordinate{phenotype.NewXCoordinate(0)}, rng.NewSeeded(4), settings)
	require.ErrorIs(t, err, ErrConstraintUnsatisfiable)
	assert.Nil(t, children)
	assert.Equal(t, 1, log.rejected)
	assert.Equal(t, []int{100}, log.attempts)
}

func TestConstrainedUnsatisfiableWithDefaultBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("spends the full default rejection budget")
	}
	log := &attemptLog{}
	settings := mustWindow(t, mustOptions(t, 1, 1, 2, 0), 1e9, 2e9)

	_, err := windowStrategy{Recorder: log}.Breed([]phenotype.XCoordinate{phenotype.NewXCoordinate(0)}, rng.NewSeeded(6), settings)
	require.ErrorIs(t, err, ErrConstraintUnsatisfiable)
	assert.Equal(t, []int{DefaultMaxRestarts * DefaultMaxAttempts}, log.attempts)
}

func TestConstrainedReachesDistantWindowWithDefaultBudget(t *testing.T) {
	settings := mustWindow(t, mustOptions(t, 1, 1, 2, 0), 100, 101)

	for seed := int64(1); seed <= 5; seed++ {
		log := &attemptLog{}
		children, err := windowStrategy{Recorder: log}.Breed([]phenotype.XCoordinate{phenotype.NewXCoordinate(0)}, rng.NewSeeded(seed), settings)
		require.NoError(t, err, "seed %d", seed)
		require.Len(t, children, 2)

		m := children[1].Magnitude()
		assert.GreaterOrEqual(t, m, 100.0, "seed %d", seed)
		assert.LessOrEqual(t, m, 101.0, "seed %d", seed)
		// farther than a single round of mutations can walk
		assert.Greater(t, log.attempts[0], DefaultMaxAttempts, "seed %d", seed)
	}
}

func TestConstrainedChainCarriesAcrossRounds(t *testing.T) {
	// each mutation moves at most 1, so [30, 31] needs at least 30 steps
	settings := mustWindow(t, mustOptions(t, 1, 1, 2, 0), 30, 31)
	log := &attemptLog{}
	strategy := windowStrategy{MaxRestarts: 10000, MaxAttempts: 5, Recorder: log}

	children, err := strategy.Breed([]phenotype.XCoordinate{phenotype.NewXCoordinate(0)}, rng.NewSeeded(2), settings)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, children[1].Magnitude(), 30.0)
	assert.Greater(t, log.attempts[0], 5)
}

func TestMagnitudeWindowIsInclusive(t *testing.T) {
	w := magnitudeWindow{min: 3, max: 10}
	assert.True(t, w.contains(3))
	assert.True(t, w.contains(10))
	assert.False(t, w.contains(2.999))
	assert.False(t, w.contains(10.001))
	require.ErrorIs(t, magnitudeWindow{min: 2, max: 1}.validate(), ErrConfiguration)
}
