package repository

import "math/rand"

// Option configures a TreapStore.
type Option func(*TreapStore)

// WithRandSource replaces the treap priority source, mainly so tests
// can make tree shapes reproducible.
func WithRandSource(src rand.Source) Option {
	return func(s *TreapStore) {
		s.rng = rand.New(src) //nolint:gosec // treap priorities, not security
	}
}
