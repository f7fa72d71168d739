package evo

import "fmt"

// Coordinator tracks the generation count of one run against its budget. It
// moves one generation per Advance so the caller controls pacing.
type Coordinator struct {
	current int
	budget  int
}

func NewCoordinator(s Settings) *Coordinator {
	return &Coordinator{budget: s.NumGenerations()}
}

// Advance moves to the next generation. It fails with ErrOutOfRange once the
// budget is spent.
func (c *Coordinator) Advance() error {
	if c.Done() {
		return fmt.Errorf("%w: generation %d of %d", ErrOutOfRange, c.current, c.budget)
	}
	c.current++
	return nil
}

// Progress reports current/budget in [0, 1].
func (c *Coordinator) Progress() float64 {
	if c.budget <= 0 {
		return 1
	}
	return float64(c.current) / float64(c.budget)
}

func (c *Coordinator) Generation() int {
	return c.current
}

func (c *Coordinator) Budget() int {
	return c.budget
}

func (c *Coordinator) Done() bool {
	return c.current >= c.budget
}
