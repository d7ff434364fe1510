package fetch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"presscrawl/internal/metrics"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 6

// Result is the outcome of fetching a single URL. A failed fetch carries an
// empty body and a non-nil Err; it is never fatal at this layer, so a
// downstream parser can still emit a minimal placeholder article.
type Result struct {
	URL  string
	Body []byte
	Err  error
}

// Pool fetches URLs with a fixed number of workers. Completion order is
// unspecified; results drain as they complete.
type Pool struct {
	fetcher Fetcher
	workers int
	logger  *zap.Logger

	total     atomic.Int64
	completed atomic.Int64
}

// NewPool builds a Pool. workers <= 0 selects DefaultWorkers.
func NewPool(fetcher Fetcher, workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{fetcher: fetcher, workers: workers, logger: logger}
}

// Run fetches every URL and invokes handle on the worker goroutine that
// completed the fetch, so parse and persist work stays on the fetch worker.
// It blocks until all submitted URLs are handled. Context cancellation stops
// submission of new URLs; fetches already in flight complete or time out and
// are still handed to handle.
func (p *Pool) Run(ctx context.Context, urls []string, handle func(Result)) {
	p.total.Store(int64(len(urls)))
	p.completed.Store(0)
	if len(urls) == 0 {
		return
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.WorkerStarted()
			defer metrics.WorkerStopped()
			for url := range jobs {
				handle(p.fetchOne(ctx, url))
			}
		}()
	}

	for _, url := range urls {
		select {
		case <-ctx.Done():
			p.logger.Info("fetch submission stopped", zap.Error(ctx.Err()))
			close(jobs)
			wg.Wait()
			return
		case jobs <- url:
		}
	}
	close(jobs)
	wg.Wait()
}

// FetchAll is the streaming form of Run: it returns a channel that yields
// one Result per URL and is closed once all fetches have drained.
func (p *Pool) FetchAll(ctx context.Context, urls []string) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		p.Run(ctx, urls, func(r Result) {
			out <- r
		})
	}()
	return out
}

func (p *Pool) fetchOne(ctx context.Context, url string) Result {
	start := time.Now()
	body, err := p.fetcher.Fetch(ctx, url)
	dur := time.Since(start)
	p.completed.Add(1)
	metrics.FetchCompleted(dur, err)

	if err != nil {
		p.logger.Warn("fetch failed, degrading to empty body",
			zap.String("url", url),
			zap.Duration("duration", dur),
			zap.Error(err),
		)
		return Result{URL: url, Err: err}
	}
	p.logger.Debug("fetched",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", dur),
	)
	return Result{URL: url, Body: body}
}

// Completed returns how many URLs have finished so far; it only ever grows
// during a Run. Together with Total it provides the N-of-M progress signal.
func (p *Pool) Completed() int64 {
	return p.completed.Load()
}

// Total returns the number of URLs submitted to the current Run.
func (p *Pool) Total() int64 {
	return p.total.Load()
}
