// Package store persists articles in a document database. The interface is
// deliberately small so the pipeline can run against MongoDB in production
// and an in-memory implementation in tests and dry runs.
package store

import (
	"context"
	"errors"

	"presscrawl/internal/article"
)

// ErrUnkeyed is returned when an article carries neither a fingerprint nor a
// source URL; such a document cannot be upserted safely.
var ErrUnkeyed = errors.New("store: article has neither fingerprint nor url")

// ErrDuplicateKey reports a unique index violation. The Mongo adapter
// translates driver errors into this sentinel so callers can branch with
// errors.Is.
var ErrDuplicateKey = errors.New("store: duplicate key")

// Outcome describes what an upsert did.
type Outcome int

// Upsert outcomes.
const (
	OutcomeRejected Outcome = iota
	OutcomeInserted
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	default:
		return "rejected"
	}
}

// Store is the persistence contract consumed by the pipeline. Implementations
// must be safe for concurrent use; Upsert is the unit of atomicity and is
// never rolled back once started.
type Store interface {
	// Upsert writes the article into the collection, keyed by fingerprint
	// when set, else by source URL. On a duplicate-key conflict against the
	// chosen key it retries exactly once with the alternate key; a second
	// failure is surfaced to the caller.
	Upsert(ctx context.Context, collection string, a article.Article) (Outcome, error)

	// KnownFingerprints returns every fingerprint persisted across all
	// collections. Individual unreadable collections are skipped; the scan
	// fails only when the database itself is unreachable.
	KnownFingerprints(ctx context.Context) (map[string]struct{}, error)

	// NextSequence atomically increments and returns the named counter.
	NextSequence(ctx context.Context, name string) (int64, error)

	// EnsureIndexes creates the fingerprint/url indexes on the collection.
	EnsureIndexes(ctx context.Context, collection string) error

	// MaxID returns the highest article ID observed across all collections,
	// or zero when the database is empty.
	MaxID(ctx context.Context) (int64, error)

	Close(ctx context.Context) error
}

// upsertKeys selects the primary and alternate upsert keys for an article.
// Priority: fingerprint, then source URL. Both may be nil.
func upsertKeys(a article.Article) (primary, alternate map[string]any) {
	switch {
	case a.Fingerprint != "" && a.SourceURL != "":
		return map[string]any{"fingerprint": a.Fingerprint}, map[string]any{"url": a.SourceURL}
	case a.Fingerprint != "":
		return map[string]any{"fingerprint": a.Fingerprint}, nil
	case a.SourceURL != "":
		return map[string]any{"url": a.SourceURL}, nil
	default:
		return nil, nil
	}
}
