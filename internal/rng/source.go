// Package rng provides the random source threaded through every stochastic
// call of an evolution run.
package rng

import (
	"math/rand"
	"sync/atomic"
	"time"
)

var sequence atomic.Int64

// Source draws bounded uniform samples. A Source is owned by a single run and
// is not safe for concurrent use.
type Source struct {
	seed int64
	rd   *rand.Rand
}

// New returns a Source seeded from the wall clock. Sources created in the
// same instant still get distinct, non-zero seeds.
func New() *Source {
	seed := time.Now().UnixNano() ^ (sequence.Add(1) * 0x5851F42D4C957F2D)
	if seed == 0 {
		seed = 1
	}
	return NewSeeded(seed)
}

// NewSeeded returns a Source whose sample sequence is fully determined by seed.
func NewSeeded(seed int64) *Source {
	return &Source{
		seed: seed,
		rd:   rand.New(rand.NewSource(seed)),
	}
}

func (s *Source) Seed() int64 {
	return s.seed
}

// FetchUniform returns count samples uniformly distributed in [low, high).
// A degenerate range yields low for every sample.
func (s *Source) FetchUniform(low, high float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	samples := make([]float64, count)
	for i := range samples {
		samples[i] = s.Uniform(low, high)
	}
	return samples
}

// Uniform returns a single sample in [low, high).
func (s *Source) Uniform(low, high float64) float64 {
	if high <= low {
		return low
	}
	v := low + s.rd.Float64()*(high-low)
	if v >= high {
		// float rounding can land exactly on the open bound
		return low
	}
	return v
}

// Intn returns a sample in [0, n). It returns 0 when n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rd.Intn(n)
}
