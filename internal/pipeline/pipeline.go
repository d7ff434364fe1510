// Package pipeline orchestrates the per-URL crawl state machine: known-check,
// fetch, parse, fingerprint recheck, enrich, persist, register.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"presscrawl/internal/article"
	"presscrawl/internal/fetch"
	"presscrawl/internal/fingerprint"
	"presscrawl/internal/knownset"
	"presscrawl/internal/metrics"
	"presscrawl/internal/store"
)

// Parser supplies candidate URLs and turns fetched pages into articles. Parse
// must not fail: malformed input yields a minimal article instead.
type Parser interface {
	DiscoverURLs(ctx context.Context) ([]string, error)
	Parse(url string, body []byte) article.Article
}

// Enricher annotates an article before persistence. Errors are logged and the
// unenriched article proceeds.
type Enricher interface {
	Enrich(a *article.Article) error
}

// Clock abstracts time.Now for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Source is one configured site: its parser, target collection and fetch
// settings. A non-nil Fetcher overrides the pipeline's default, letting a
// source carry its own timeout.
type Source struct {
	Name       string
	Collection string
	Parser     Parser
	Fetcher    fetch.Fetcher
	Workers    int
}

// Stats summarizes a run. Counters are cumulative across sources.
type Stats struct {
	Discovered       int
	SkippedKnown     int
	SkippedDuplicate int
	Persisted        int
	Discarded        int
	Failed           int
}

func (s Stats) merge(o Stats) Stats {
	return Stats{
		Discovered:       s.Discovered + o.Discovered,
		SkippedKnown:     s.SkippedKnown + o.SkippedKnown,
		SkippedDuplicate: s.SkippedDuplicate + o.SkippedDuplicate,
		Persisted:        s.Persisted + o.Persisted,
		Discarded:        s.Discarded + o.Discarded,
		Failed:           s.Failed + o.Failed,
	}
}

// runCounters is the concurrency-safe accumulator behind Stats; handleResult
// runs on multiple pool workers at once.
type runCounters struct {
	discovered       atomic.Int64
	skippedKnown     atomic.Int64
	skippedDuplicate atomic.Int64
	persisted        atomic.Int64
	discarded        atomic.Int64
	failed           atomic.Int64
}

func (c *runCounters) stats() Stats {
	return Stats{
		Discovered:       int(c.discovered.Load()),
		SkippedKnown:     int(c.skippedKnown.Load()),
		SkippedDuplicate: int(c.skippedDuplicate.Load()),
		Persisted:        int(c.persisted.Load()),
		Discarded:        int(c.discarded.Load()),
		Failed:           int(c.failed.Load()),
	}
}

// Pipeline executes crawl runs. All collaborators are injected; the pipeline
// owns no global state.
type Pipeline struct {
	store    store.Store
	known    *knownset.Set
	fetcher  fetch.Fetcher
	enricher Enricher
	ids      *article.IDGenerator
	clock    Clock
	logger   *zap.Logger
}

// New constructs a Pipeline.
func New(
	st store.Store,
	known *knownset.Set,
	fetcher fetch.Fetcher,
	enricher Enricher,
	ids *article.IDGenerator,
	clock Clock,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:    st,
		known:    known,
		fetcher:  fetcher,
		enricher: enricher,
		ids:      ids,
		clock:    clock,
		logger:   logger,
	}
}

// Run processes every source. One source failing discovery or connection
// does not prevent the others from being processed; the collected errors are
// returned after the run.
func (p *Pipeline) Run(ctx context.Context, sources []Source) (Stats, error) {
	runID := uuid.NewString()
	log := p.logger.With(zap.String("run_id", runID))
	log.Info("crawl run starting", zap.Int("sources", len(sources)))

	var total Stats
	var errs []error
	for _, src := range sources {
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("run canceled: %w", ctx.Err()))
			break
		}
		stats, err := p.ProcessSource(ctx, src)
		total = total.merge(stats)
		if err != nil {
			log.Error("source failed", zap.String("source", src.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("source %s: %w", src.Name, err))
		}
	}

	log.Info("crawl run finished",
		zap.Int("discovered", total.Discovered),
		zap.Int("persisted", total.Persisted),
		zap.Int("skipped_known", total.SkippedKnown),
		zap.Int("skipped_duplicate", total.SkippedDuplicate),
		zap.Int("discarded", total.Discarded),
		zap.Int("failed", total.Failed),
	)
	return total, errors.Join(errs...)
}

// ProcessSource runs the state machine over one source's URL list. Fetches
// run on a bounded pool; parse, fingerprint, enrich and persist execute on
// whichever worker completed the fetch.
func (p *Pipeline) ProcessSource(ctx context.Context, src Source) (Stats, error) {
	log := p.logger.With(zap.String("source", src.Name))

	if err := p.store.EnsureIndexes(ctx, src.Collection); err != nil {
		log.Warn("index creation failed, relying on upsert keys only", zap.Error(err))
	}

	urls, err := src.Parser.DiscoverURLs(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("discover urls: %w", err)
	}
	log.Info("urls discovered", zap.Int("count", len(urls)))

	counters := &runCounters{}
	counters.discovered.Store(int64(len(urls)))

	// Cheap pre-fetch filter: a known URL fingerprint means the content was
	// already stored in an earlier run, so the fetch is skipped entirely.
	// The URL hash is a heuristic proxy; the authoritative content-hash
	// check happens again after parsing.
	pending := make([]string, 0, len(urls))
	for _, u := range urls {
		if d, ok := fingerprint.FromURL(u); ok && p.known.Contains(d) {
			counters.skippedKnown.Add(1)
			metrics.ArticleSkipped(src.Name, "known")
			log.Debug("skipping known url", zap.String("url", u))
			continue
		}
		pending = append(pending, u)
	}

	fetcher := p.fetcher
	if src.Fetcher != nil {
		fetcher = src.Fetcher
	}
	pool := fetch.NewPool(fetcher, src.Workers, log)
	pool.Run(ctx, pending, func(r fetch.Result) {
		p.handleResult(ctx, src, r, counters, log)
	})

	return counters.stats(), nil
}

func (p *Pipeline) handleResult(ctx context.Context, src Source, r fetch.Result, counters *runCounters, log *zap.Logger) {
	// A failed fetch still reaches the parser with an empty body so it can
	// produce a placeholder article; nothing raises out of the pipeline.
	a := src.Parser.Parse(r.URL, r.Body)
	if a.ID == 0 {
		a.ID = p.ids.Next()
	}
	if a.SourceURL == "" {
		a.SourceURL = r.URL
	}
	if a.Contentful() {
		now := p.clock.Now()
		a.ParsedAt = &now
	}

	if d, ok := fingerprint.Compute(&a); ok {
		a.Fingerprint = d
	} else {
		log.Debug("article has no computable fingerprint", zap.String("url", r.URL))
	}

	// Authoritative recheck: the content-derived fingerprint may match an
	// article discovered through a different URL.
	if a.Fingerprint != "" && p.known.Contains(a.Fingerprint) {
		counters.skippedDuplicate.Add(1)
		metrics.ArticleSkipped(src.Name, "duplicate")
		log.Debug("skipping duplicate content",
			zap.String("url", r.URL), zap.String("fingerprint", a.Fingerprint))
		return
	}

	if !a.Contentful() {
		counters.discarded.Add(1)
		metrics.ArticleSkipped(src.Name, "empty")
		log.Debug("discarding contentless article", zap.String("url", r.URL))
		return
	}

	if err := p.enricher.Enrich(&a); err != nil {
		log.Warn("enrichment failed, persisting unenriched",
			zap.String("url", r.URL), zap.Error(err))
	}

	// An upsert already in progress is never aborted by run cancellation;
	// the upsert is the unit of atomicity.
	outcome, err := p.store.Upsert(context.WithoutCancel(ctx), src.Collection, a)
	if err != nil {
		counters.failed.Add(1)
		metrics.ArticleFailed(src.Name)
		log.Error("persist failed",
			zap.String("url", r.URL),
			zap.String("fingerprint", a.Fingerprint),
			zap.Error(err),
		)
		return
	}

	counters.persisted.Add(1)
	metrics.ArticlePersisted(src.Name, outcome.String())

	// Registration happens strictly after a successful write; marking
	// content as known before it is stored would lose it on the next run.
	p.known.Add(a.Fingerprint)

	log.Info("article persisted",
		zap.String("url", r.URL),
		zap.Int64("id", a.ID),
		zap.String("fingerprint", a.Fingerprint),
		zap.String("outcome", outcome.String()),
	)
}
