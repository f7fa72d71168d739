package challenge

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrChallengeExists   = errors.New("challenge already registered")
	ErrChallengeNotFound = errors.New("challenge not found")
)

// Registry maps canonical challenge names to implementations.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Challenge
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[string]Challenge)}
}

// NewDefaultRegistry returns a registry holding the built-in challenges.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range []Challenge{NewXTarget(), NewXWindow(), NewPointTarget()} {
		// built-in names are distinct
		_ = r.Register(c)
	}
	return r
}

func (r *Registry) Register(c Challenge) error {
	if c == nil {
		return errors.New("challenge is required")
	}
	name := Normalize(c.Name())
	if name == "" {
		return errors.New("challenge name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrChallengeExists, name)
	}
	r.m[name] = c
	return nil
}

// Get resolves name through Normalize before lookup.
func (r *Registry) Get(name string) (Challenge, error) {
	key := Normalize(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChallengeNotFound, name)
	}
	return c, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.m))
	for name := range r.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
