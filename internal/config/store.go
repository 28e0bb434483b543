package config

import (
	"sync"
	"sync/atomic"
)

// Store holds the live configuration. Readers get an immutable snapshot
// without locking; writers are serialized and publish a fresh copy.
type Store struct {
	mu  sync.Mutex
	cur atomic.Pointer[Config]
}

// NewStore publishes c as the initial snapshot.
func NewStore(c Config) *Store {
	s := &Store{}
	next := c.Clone()
	s.cur.Store(&next)
	return s
}

// Snapshot returns the current configuration. Callers must not modify it.
func (s *Store) Snapshot() *Config {
	return s.cur.Load()
}

// Update runs fn on a private copy and publishes the result if fn
// succeeds.
func (s *Store) Update(fn func(Config) (Config, error)) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.cur.Load().Clone())
	if err != nil {
		return *s.cur.Load(), err
	}
	next = next.Clone()
	s.cur.Store(&next)
	return next, nil
}
