// Package knownset tracks the fingerprints persisted so far in this run.
//
// The set is a throughput optimization, not a correctness guarantee: the
// check-then-act sequence around it is deliberately not atomic, and the
// store's unique fingerprint index remains the backstop against duplicate
// persistence. Entries are never removed; memory grows with the corpus.
package knownset

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"presscrawl/internal/store"
)

// Set is a mutex-guarded set of fingerprint digests.
type Set struct {
	mu      sync.Mutex
	members map[string]struct{}
}

// New returns an empty Set.
func New() *Set {
	return &Set{members: make(map[string]struct{})}
}

// Seed loads all persisted fingerprints from the store. When the scan fails
// the set degrades to empty: every fingerprint will look unknown and the
// pipeline will attempt duplicates, which the store's unique index rejects.
func Seed(ctx context.Context, st store.Store, logger *zap.Logger) *Set {
	s := New()
	known, err := st.KnownFingerprints(ctx)
	if err != nil {
		logger.Warn("fingerprint seeding failed, continuing with empty known-set", zap.Error(err))
		return s
	}
	s.members = known
	if s.members == nil {
		s.members = make(map[string]struct{})
	}
	logger.Info("seeded known fingerprints", zap.Int("count", len(s.members)))
	return s
}

// Contains reports whether the digest has been registered.
func (s *Set) Contains(digest string) bool {
	if digest == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[digest]
	return ok
}

// Add registers a digest. Empty digests are ignored; articles without a
// fingerprint cannot be deduplicated.
func (s *Set) Add(digest string) {
	if digest == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[digest] = struct{}{}
}

// Len returns the current number of known fingerprints.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Snapshot returns a copy of the set contents.
func (s *Set) Snapshot() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.members))
	for d := range s.members {
		out[d] = struct{}{}
	}
	return out
}
