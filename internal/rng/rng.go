// Package rng provides the random source abstraction injected into the
// stochastic simulators. Production code uses a seeded math/rand source;
// tests inject a fixed sequence to make tick outcomes reproducible.
package rng

import "math/rand"

// Source produces uniformly distributed values in [0,1).
type Source interface {
	Float64() float64
}

// NewSeeded returns a Source backed by math/rand with the given seed.
// The same seed always yields the same draw sequence.
func NewSeeded(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// Uniform draws a uniformly distributed value in [min, max) from src.
func Uniform(src Source, min, max float64) float64 {
	return min + src.Float64()*(max-min)
}

// Chance returns true with probability p (0 <= p <= 1).
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// Sequence is a deterministic Source that replays a fixed list of values,
// wrapping around when exhausted. Intended for tests.
type Sequence struct {
	values []float64
	next   int
}

// NewSequence creates a Sequence from the given values. The values must be
// in [0,1); they are returned verbatim by Float64.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}
