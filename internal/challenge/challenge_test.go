package challenge

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evolvo/internal/evo"
	"evolvo/internal/rng"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"x-target":          "x-target",
		" X_Coordinate ":    "x-target",
		"challenge-x":       "x-target",
		"partial":           "x-window",
		"X Window":          "x-window",
		"Point2D":           "point-target",
		"challenge_point":   "point-target",
		"custom-thing":      "custom-thing",
		"   ":               "",
		"--x-constrained--": "x-window",
	}
	for input, want := range cases {
		assert.Equal(t, want, Normalize(input), input)
	}
}

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, []string{"point-target", "x-target", "x-window"}, r.Names())

	c, err := r.Get("xcoordinate")
	require.NoError(t, err)
	assert.Equal(t, "x-target", c.Name())

	_, err = r.Get("missing")
	require.ErrorIs(t, err, ErrChallengeNotFound)

	err = r.Register(NewXTarget())
	require.ErrorIs(t, err, ErrChallengeExists)
	require.Error(t, r.Register(nil))
}

func TestXTargetConverges(t *testing.T) {
	out, err := NewXTarget().Run(context.Background(), Request{
		Options: evo.DefaultOptions(),
		Source:  rng.NewSeeded(31),
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyOrdinary, out.Strategy)
	assert.Nil(t, out.Window)
	assert.Equal(t, []float64{0}, out.Start)
	assert.Equal(t, []float64{2}, out.Target)
	assert.InDelta(t, 2.0, out.Coordinates[0], 1e-2)
	assert.False(t, math.IsInf(out.Score, 0))
}

func TestXWindowConvergesToBoundary(t *testing.T) {
	out, err := NewXWindow().Run(context.Background(), Request{
		Options: evo.DefaultOptions(),
		Source:  rng.NewSeeded(31),
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyConstrained, out.Strategy)
	require.NotNil(t, out.Window)
	assert.Equal(t, Window{Min: 3, Max: 10}, *out.Window)
	assert.InDelta(t, 3.0, out.Coordinates[0], 1e-2)
}

func TestXWindowOrdinaryOverride(t *testing.T) {
	out, err := NewXWindow().Run(context.Background(), Request{
		Options:  evo.DefaultOptions(),
		Strategy: StrategyOrdinary,
		Source:   rng.NewSeeded(31),
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyOrdinary, out.Strategy)
	assert.InDelta(t, 2.0, out.Coordinates[0], 1e-2)
}

func TestUnreachableWindowFails(t *testing.T) {
	opts, err := evo.NewOptions(2, 1, 2, 0)
	require.NoError(t, err)
	_, err = NewXTarget().Run(context.Background(), Request{
		Options:     opts,
		Window:      &Window{Min: 1e9, Max: 2e9},
		MaxRestarts: 3,
		MaxAttempts: 3,
		Source:      rng.NewSeeded(1),
	})
	require.ErrorIs(t, err, evo.ErrConstraintUnsatisfiable)
}

func TestRequestValidation(t *testing.T) {
	ctx := context.Background()
	_, err := NewXTarget().Run(ctx, Request{Options: evo.DefaultOptions(), Strategy: StrategyConstrained})
	require.ErrorIs(t, err, evo.ErrConfiguration)

	_, err = NewXTarget().Run(ctx, Request{Options: evo.DefaultOptions(), Strategy: "annealing"})
	require.ErrorIs(t, err, evo.ErrConfiguration)

	_, err = NewXTarget().Run(ctx, Request{Options: evo.DefaultOptions(), Target: []float64{1, 2}})
	require.ErrorIs(t, err, evo.ErrConfiguration)

	_, err = NewPointTarget().Run(ctx, Request{Options: evo.DefaultOptions(), Window: &Window{Min: 5, Max: 1}})
	require.ErrorIs(t, err, evo.ErrConfiguration)

	_, err = NewXTarget().Run(ctx, Request{})
	require.ErrorIs(t, err, evo.ErrConfiguration)
}

func TestPointTargetApproachesTarget(t *testing.T) {
	opts, err := evo.NewOptions(150, 2, 20, 0)
	require.NoError(t, err)
	out, err := NewPointTarget().Run(context.Background(), Request{
		Options: opts,
		Step:    0.5,
		Source:  rng.NewSeeded(12),
	})
	require.NoError(t, err)
	require.Len(t, out.Coordinates, 2)
	assert.InDelta(t, 3.0, out.Coordinates[0], 0.1)
	assert.InDelta(t, 4.0, out.Coordinates[1], 0.1)
	assert.InDelta(t, 5.0, out.Magnitude, 0.1)
}

func TestPointTargetWindowKeepsDistance(t *testing.T) {
	opts, err := evo.NewOptions(60, 2, 20, 0)
	require.NoError(t, err)
	out, err := NewPointTarget().Run(context.Background(), Request{
		Options: opts,
		Start:   []float64{0, 1},
		Target:  []float64{6, 8},
		Window:  &Window{Min: 0, Max: 5},
		Source:  rng.NewSeeded(12),
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyConstrained, out.Strategy)
	assert.LessOrEqual(t, out.Magnitude, 5.0)
	assert.InDelta(t, 5.0, out.Magnitude, 0.25)
}

func TestInverseSquaredErrorStaysFinite(t *testing.T) {
	assert.Equal(t, math.MaxFloat64, inverseSquaredError(0))
	assert.Equal(t, 0.25, inverseSquaredError(2))

	// squares that underflow to subnormals or zero still score finite
	for _, distance := range []float64{1e-160, -1e-160, 1e-200, math.SmallestNonzeroFloat64} {
		score := inverseSquaredError(distance)
		assert.False(t, math.IsInf(score, 0), "distance %g", distance)
		assert.Equal(t, math.MaxFloat64, score, "distance %g", distance)
	}
	assert.InDelta(t, 1e300, inverseSquaredError(1e-150), 1e286)
}
