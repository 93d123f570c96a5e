// Package metrics exposes Prometheus instrumentation for the crawl and
// search pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric exported by the service.
const Namespace = "gosearch"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Crawl metrics
	PagesCrawled       *prometheus.CounterVec
	URLsDispatched     prometheus.Counter
	URLsBlocked        *prometheus.CounterVec
	LinksDiscovered    prometheus.Counter
	CrawlDuration      prometheus.Histogram
	QueueDepth         prometheus.Gauge
	ReapedReservations prometheus.Counter

	// Search metrics
	Searches       prometheus.Counter
	SearchDuration prometheus.Histogram
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	Clicks         prometheus.Counter
}

// New creates and registers all service metrics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initCrawlMetrics(factory)
	m.initSearchMetrics(factory)

	return m
}

// initCrawlMetrics initializes crawl pipeline metrics.
func (m *Metrics) initCrawlMetrics(factory promauto.Factory) {
	m.PagesCrawled = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "crawler",
			Name:      "pages_crawled_total",
			Help:      "Total number of crawl attempts by outcome",
		},
		[]string{"status"},
	)

	m.URLsDispatched = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "crawler",
			Name:      "urls_dispatched_total",
			Help:      "Total number of URLs dispatched to the work queue",
		},
	)

	m.URLsBlocked = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "crawler",
			Name:      "urls_blocked_total",
			Help:      "Total number of URLs blocked by policy",
		},
		[]string{"reason"},
	)

	m.LinksDiscovered = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "crawler",
			Name:      "links_discovered_total",
			Help:      "Total number of newly registered discovered links",
		},
	)

	m.CrawlDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "crawler",
			Name:      "crawl_duration_seconds",
			Help:      "Duration of full crawl jobs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~51s
		},
	)

	m.QueueDepth = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "crawler",
			Name:      "queue_depth",
			Help:      "Current length of the work queue stream",
		},
	)

	m.ReapedReservations = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "crawler",
			Name:      "reaped_reservations_total",
			Help:      "Total number of stale crawling reservations reset to pending",
		},
	)
}

// initSearchMetrics initializes search pipeline metrics.
func (m *Metrics) initSearchMetrics(factory promauto.Factory) {
	m.Searches = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Total number of search queries served",
		},
	)

	m.SearchDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "query_duration_seconds",
			Help:      "Duration of search query execution in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	m.CacheHits = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "cache_hits_total",
			Help:      "Total number of result cache hits",
		},
	)

	m.CacheMisses = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "cache_misses_total",
			Help:      "Total number of result cache misses",
		},
	)

	m.Clicks = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "clicks_total",
			Help:      "Total number of recorded result clicks",
		},
	)
}

// RecordCrawl records a completed crawl attempt.
func (m *Metrics) RecordCrawl(success bool, durationSeconds float64) {
	status := "failure"
	if success {
		status = "success"
	}

	m.PagesCrawled.WithLabelValues(status).Inc()
	m.CrawlDuration.Observe(durationSeconds)
}

// RecordDispatch counts a URL handed to the work queue.
func (m *Metrics) RecordDispatch() {
	m.URLsDispatched.Inc()
}

// RecordBlocked counts a URL blocked by policy.
func (m *Metrics) RecordBlocked(reason string) {
	m.URLsBlocked.WithLabelValues(reason).Inc()
}

// RecordLinksDiscovered counts newly registered links.
func (m *Metrics) RecordLinksDiscovered(count int) {
	m.LinksDiscovered.Add(float64(count))
}

// SetQueueDepth records the current work queue length.
func (m *Metrics) SetQueueDepth(depth int64) {
	m.QueueDepth.Set(float64(depth))
}

// RecordReaped counts stale reservations reset by the reaper.
func (m *Metrics) RecordReaped(count int64) {
	m.ReapedReservations.Add(float64(count))
}

// RecordSearch records a served search query and whether the result cache
// answered it.
func (m *Metrics) RecordSearch(durationSeconds float64, cacheHit bool) {
	m.Searches.Inc()
	m.SearchDuration.Observe(durationSeconds)

	if cacheHit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

// RecordClick counts a logged result click.
func (m *Metrics) RecordClick() {
	m.Clicks.Inc()
}
