package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"presscrawl/internal/article"
)

func TestMemory_UpsertKeyPriority(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	// keyed by fingerprint: same fingerprint from a different URL updates
	// the existing document instead of inserting a second one
	out, err := m.Upsert(ctx, "taz", article.Article{SourceURL: "https://x.test/1", Fingerprint: "f1", Text: "v1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeInserted, out)

	out, err = m.Upsert(ctx, "taz", article.Article{SourceURL: "https://x.test/mirror", Fingerprint: "f1", Text: "v2"})
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, out)

	docs := m.Documents("taz")
	require.Len(t, docs, 1)
	require.Equal(t, "v2", docs[0].Text)
}

func TestMemory_UpsertFallsBackToURLKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	// fingerprint computation failed upstream; the url still keys the doc
	out, err := m.Upsert(ctx, "taz", article.Article{SourceURL: "https://x.test/1", Text: "first"})
	require.NoError(t, err)
	require.Equal(t, OutcomeInserted, out)

	out, err = m.Upsert(ctx, "taz", article.Article{SourceURL: "https://x.test/1", Text: "second"})
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, out)
	require.Len(t, m.Documents("taz"), 1)
}

func TestMemory_UpsertRejectsUnkeyed(t *testing.T) {
	t.Parallel()
	m := NewMemory()

	out, err := m.Upsert(context.Background(), "taz", article.Article{Text: "orphan"})
	require.ErrorIs(t, err, ErrUnkeyed)
	require.Equal(t, OutcomeRejected, out)
	require.Zero(t, m.Count())
}

func TestMemory_DuplicateKeyRetriesAlternate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	// document A owns fingerprint fX under url /a
	_, err := m.Upsert(ctx, "taz", article.Article{SourceURL: "https://x.test/a", Fingerprint: "fX"})
	require.NoError(t, err)

	// document B was stored earlier by url only (no fingerprint)
	_, err = m.Upsert(ctx, "taz", article.Article{SourceURL: "https://x.test/b", Text: "b"})
	require.NoError(t, err)

	// B is re-crawled and now hashes to fX: the fingerprint-keyed upsert
	// finds A, so no conflict and A absorbs the write
	out, err := m.Upsert(ctx, "taz", article.Article{SourceURL: "https://x.test/b", Fingerprint: "fX", Text: "b2"})
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, out)
	require.Len(t, m.Documents("taz"), 2)
}

func TestMemory_ConcurrentSameFingerprint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	const workers = 8
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Upsert(ctx, "taz", article.Article{
				ID:          int64(i + 1),
				SourceURL:   "https://x.test/1",
				Fingerprint: "shared",
				Text:        "racer",
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, m.Count(), "racing upserts on one fingerprint must persist one document")
}

func TestMemory_NextSequence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	const (
		workers = 10
		perW    = 10
	)
	out := make(chan int64, workers*perW)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perW {
				n, err := m.NextSequence(ctx, "articles")
				require.NoError(t, err)
				out <- n
			}
		}()
	}
	wg.Wait()
	close(out)

	values := make([]int64, 0, workers*perW)
	for v := range out {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	require.Len(t, values, workers*perW)
	for i, v := range values {
		require.Equal(t, int64(i+1), v, "sequence must have no gaps or repeats")
	}

	// independent counters do not share state
	n, err := m.NextSequence(ctx, "other")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestMemory_KnownFingerprintsAndMaxID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Upsert(ctx, "taz", article.Article{ID: 3, SourceURL: "https://x.test/1", Fingerprint: "f1"})
	require.NoError(t, err)
	_, err = m.Upsert(ctx, "spiegel", article.Article{ID: 9, SourceURL: "https://y.test/2", Fingerprint: "f2"})
	require.NoError(t, err)
	_, err = m.Upsert(ctx, "spiegel", article.Article{ID: 5, SourceURL: "https://y.test/3", Text: "no fp"})
	require.NoError(t, err)

	known, err := m.KnownFingerprints(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"f1": {}, "f2": {}}, known)

	max, err := m.MaxID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(9), max)
}

func TestMemory_FailUpserts(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	boom := errors.New("backend down")
	m.FailUpserts = boom

	_, err := m.Upsert(context.Background(), "taz", article.Article{SourceURL: "https://x.test/1"})
	require.ErrorIs(t, err, boom)
	require.Zero(t, m.Count())
}
