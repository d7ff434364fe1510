// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	articlesPersistedTotal *prometheus.CounterVec
	articlesSkippedTotal   *prometheus.CounterVec
	articlesFailedTotal    *prometheus.CounterVec
	fetchesTotal           *prometheus.CounterVec
	fetchDurationSeconds   prometheus.Histogram
	fetchActiveWorkers     prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. It is safe to call multiple times.
func Init() {
	once.Do(func() {
		articlesPersistedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presscrawl_articles_persisted_total",
				Help: "Articles written to the store, labeled by source and upsert outcome.",
			},
			[]string{"source", "outcome"},
		)

		articlesSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presscrawl_articles_skipped_total",
				Help: "Articles skipped before persistence, labeled by source and reason.",
			},
			[]string{"source", "reason"},
		)

		articlesFailedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presscrawl_articles_failed_total",
				Help: "Articles whose persistence failed after the store's own fallback.",
			},
			[]string{"source"},
		)

		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presscrawl_fetches_total",
				Help: "Completed fetch attempts, labeled by result.",
			},
			[]string{"result"},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "presscrawl_fetch_duration_seconds",
				Help:    "Wall time of individual URL fetches.",
				Buckets: prometheus.DefBuckets,
			},
		)

		fetchActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "presscrawl_fetch_active_workers",
				Help: "Number of fetch pool workers currently running.",
			},
		)
	})
}

// ArticlePersisted counts a successful upsert.
func ArticlePersisted(source, outcome string) {
	Init()
	articlesPersistedTotal.WithLabelValues(source, outcome).Inc()
}

// ArticleSkipped counts an article dropped before persistence. Reasons:
// "known", "duplicate", "empty".
func ArticleSkipped(source, reason string) {
	Init()
	articlesSkippedTotal.WithLabelValues(source, reason).Inc()
}

// ArticleFailed counts a terminal persistence failure.
func ArticleFailed(source string) {
	Init()
	articlesFailedTotal.WithLabelValues(source).Inc()
}

// FetchCompleted records one finished fetch attempt.
func FetchCompleted(dur time.Duration, err error) {
	Init()
	result := "ok"
	if err != nil {
		result = "error"
	}
	fetchesTotal.WithLabelValues(result).Inc()
	fetchDurationSeconds.Observe(dur.Seconds())
}

// WorkerStarted increments the pool worker gauge.
func WorkerStarted() {
	Init()
	fetchActiveWorkers.Inc()
}

// WorkerStopped decrements the pool worker gauge.
func WorkerStopped() {
	Init()
	fetchActiveWorkers.Dec()
}
