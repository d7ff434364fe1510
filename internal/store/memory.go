package store

import (
	"context"
	"fmt"
	"sync"

	"presscrawl/internal/article"
)

// Memory is an in-memory Store with the same keying and duplicate-key
// semantics as the Mongo adapter, including the unique fingerprint index. It
// backs tests and the --dry-run mode.
type Memory struct {
	mu          sync.Mutex
	collections map[string][]article.Article
	counters    map[string]int64

	// FailUpserts, when non-nil, makes every Upsert fail with this error.
	// Test hook, in the manner of a configurable mock provider.
	FailUpserts error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string][]article.Article),
		counters:    make(map[string]int64),
	}
}

// Upsert mirrors the Mongo adapter: fingerprint-then-url key priority, one
// alternate-key retry on a duplicate-key conflict.
func (m *Memory) Upsert(ctx context.Context, collection string, a article.Article) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return OutcomeRejected, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUpserts != nil {
		return OutcomeRejected, m.FailUpserts
	}

	primary, alternate := upsertKeys(a)
	if primary == nil {
		return OutcomeRejected, ErrUnkeyed
	}

	outcome, err := m.upsertLocked(collection, primary, a)
	if err == nil {
		return outcome, nil
	}
	if err != ErrDuplicateKey || alternate == nil {
		return OutcomeRejected, err
	}
	outcome, err = m.upsertLocked(collection, alternate, a)
	if err != nil {
		return OutcomeRejected, fmt.Errorf("alternate key upsert: %w", err)
	}
	return outcome, nil
}

func (m *Memory) upsertLocked(collection string, key map[string]any, a article.Article) (Outcome, error) {
	docs := m.collections[collection]

	match := -1
	for i, d := range docs {
		if matchesKey(d, key) {
			match = i
			break
		}
	}

	// unique fingerprint index: a different document already holding this
	// fingerprint rejects the write
	if a.Fingerprint != "" {
		for i, d := range docs {
			if i != match && d.Fingerprint == a.Fingerprint {
				return OutcomeRejected, ErrDuplicateKey
			}
		}
	}

	if match >= 0 {
		docs[match] = a
		return OutcomeUpdated, nil
	}
	m.collections[collection] = append(docs, a)
	return OutcomeInserted, nil
}

func matchesKey(d article.Article, key map[string]any) bool {
	if v, ok := key["fingerprint"]; ok {
		return d.Fingerprint != "" && d.Fingerprint == v
	}
	if v, ok := key["url"]; ok {
		return d.SourceURL != "" && d.SourceURL == v
	}
	return false
}

// KnownFingerprints collects fingerprints across all collections.
func (m *Memory) KnownFingerprints(ctx context.Context) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	known := make(map[string]struct{})
	for _, docs := range m.collections {
		for _, d := range docs {
			if d.Fingerprint != "" {
				known[d.Fingerprint] = struct{}{}
			}
		}
	}
	return known, nil
}

// NextSequence increments the named counter under the store lock.
func (m *Memory) NextSequence(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
	return m.counters[name], nil
}

// EnsureIndexes is a no-op; uniqueness is enforced inside Upsert.
func (m *Memory) EnsureIndexes(context.Context, string) error { return nil }

// MaxID returns the highest article ID across all collections.
func (m *Memory) MaxID(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var max int64
	for _, docs := range m.collections {
		for _, d := range docs {
			if d.ID > max {
				max = d.ID
			}
		}
	}
	return max, nil
}

// Close is a no-op.
func (m *Memory) Close(context.Context) error { return nil }

// Documents returns a copy of the collection contents, for assertions.
func (m *Memory) Documents(collection string) []article.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]article.Article(nil), m.collections[collection]...)
}

// Count returns the number of documents stored across all collections.
func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, docs := range m.collections {
		n += len(docs)
	}
	return n
}
