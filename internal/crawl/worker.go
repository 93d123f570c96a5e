package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/gosearch/internal/domain"
	"github.com/jonesrussell/gosearch/internal/logger"
	"github.com/jonesrussell/gosearch/internal/metrics"
	"github.com/jonesrussell/gosearch/internal/queue"
)

const (
	defaultWorkerCount = 4
	defaultJobTimeout  = 60 * time.Second
	defaultIdleDelay   = time.Second
)

// WorkSource supplies claimed work items from the shared queue.
type WorkSource interface {
	Read(ctx context.Context) ([]*queue.WorkItem, error)
	Acknowledge(ctx context.Context, item *queue.WorkItem) error
}

// CompletionStore records the terminal outcome of a crawl job.
type CompletionStore interface {
	Complete(ctx context.Context, url string, success bool) error
}

// PageIndexer persists a parsed page and its image assets.
type PageIndexer interface {
	Index(ctx context.Context, record *domain.PageRecord) error
}

// QuotaRecorder tracks successful crawls per domain.
type QuotaRecorder interface {
	RegisterSuccess(ctx context.Context, domain string) error
}

// WorkerPoolConfig configures the worker pool.
type WorkerPoolConfig struct {
	WorkerCount int
	JobTimeout  time.Duration
	IdleDelay   time.Duration
}

// WorkerPool manages a pool of crawl workers that consume URLs from the
// work queue and run each through the fetch, parse, index pipeline.
type WorkerPool struct {
	source      WorkSource
	store       CompletionStore
	indexer     PageIndexer
	registrar   *Registrar
	fetcher     *Fetcher
	parser      Parser
	quota       QuotaRecorder
	log         logger.Logger
	metrics     *metrics.Metrics
	workerCount int
	jobTimeout  time.Duration
	idleDelay   time.Duration
}

// NewWorkerPool creates a new worker pool with the given dependencies and configuration.
func NewWorkerPool(
	source WorkSource,
	store CompletionStore,
	indexer PageIndexer,
	registrar *Registrar,
	fetcher *Fetcher,
	parser Parser,
	quota QuotaRecorder,
	log logger.Logger,
	m *metrics.Metrics,
	cfg WorkerPoolConfig,
) *WorkerPool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}

	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}

	if cfg.IdleDelay <= 0 {
		cfg.IdleDelay = defaultIdleDelay
	}

	return &WorkerPool{
		source:      source,
		store:       store,
		indexer:     indexer,
		registrar:   registrar,
		fetcher:     fetcher,
		parser:      parser,
		quota:       quota,
		log:         log,
		metrics:     m,
		workerCount: cfg.WorkerCount,
		jobTimeout:  cfg.JobTimeout,
		idleDelay:   cfg.IdleDelay,
	}
}

// Start launches workerCount goroutines. Blocks until ctx is cancelled.
func (wp *WorkerPool) Start(ctx context.Context) error {
	wp.log.Info("starting worker pool", logger.Int("worker_count", wp.workerCount))

	var wg sync.WaitGroup

	for i := range wp.workerCount {
		wg.Add(1)

		go func(workerID int) {
			defer wg.Done()
			wp.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	wp.log.Info("worker pool stopped")

	return nil
}

// worker is a single worker goroutine loop.
func (wp *WorkerPool) worker(ctx context.Context, workerID int) {
	wp.log.Info("worker started", logger.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			wp.log.Info("worker stopping", logger.Int("worker_id", workerID))
			return
		default:
		}

		if shouldReturn := wp.readAndProcess(ctx, workerID); shouldReturn {
			return
		}
	}
}

// readAndProcess claims a batch of work items and processes them.
// Returns true if the worker should exit (context cancelled).
func (wp *WorkerPool) readAndProcess(ctx context.Context, workerID int) bool {
	items, err := wp.source.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}

		wp.log.Error("failed to read work items",
			logger.Int("worker_id", workerID),
			logger.Error(err),
		)

		return wp.sleepOrCancel(ctx)
	}

	if len(items) == 0 {
		return wp.sleepOrCancel(ctx)
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return true
		}

		wp.Process(ctx, item)
	}

	return false
}

// sleepOrCancel sleeps for the idle delay or returns true if the context is cancelled.
func (wp *WorkerPool) sleepOrCancel(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-time.After(wp.idleDelay):
		return false
	}
}

// Process runs a single work item through the crawl pipeline and records
// its outcome. The pipeline runs under the job timeout; the outcome write
// uses the parent context so an expired job deadline cannot prevent the
// failure from being recorded.
func (wp *WorkerPool) Process(ctx context.Context, item *queue.WorkItem) {
	start := time.Now()

	jobCtx, cancel := context.WithTimeout(ctx, wp.jobTimeout)
	success := wp.runJob(jobCtx, item)

	cancel()

	if completeErr := wp.store.Complete(ctx, item.URL, success); completeErr != nil {
		wp.log.Error("failed to record crawl outcome",
			logger.String("url", item.URL),
			logger.Bool("success", success),
			logger.Error(completeErr),
		)
	}

	if success {
		wp.recordDomainSuccess(ctx, item.URL)
	}

	wp.metrics.RecordCrawl(success, time.Since(start).Seconds())

	if ackErr := wp.source.Acknowledge(ctx, item); ackErr != nil {
		wp.log.Error("failed to acknowledge work item",
			logger.String("message_id", item.MessageID),
			logger.Error(ackErr),
		)
	}
}

// runJob executes fetch, parse, index, and link discovery for one URL.
// Returns true when the page was indexed.
func (wp *WorkerPool) runJob(ctx context.Context, item *queue.WorkItem) bool {
	body, fetchErr := wp.fetcher.Fetch(ctx, item.URL)
	if fetchErr != nil {
		wp.log.Info("page fetch failed",
			logger.String("url", item.URL),
			logger.Error(fetchErr),
		)

		return false
	}

	record, parseErr := wp.parser.Parse(item.URL, body)
	if parseErr != nil {
		wp.log.Info("page parse failed",
			logger.String("url", item.URL),
			logger.Error(parseErr),
		)

		return false
	}

	if indexErr := wp.indexer.Index(ctx, record); indexErr != nil {
		wp.log.Error("failed to index page",
			logger.String("url", item.URL),
			logger.Error(indexErr),
		)

		return false
	}

	created := wp.registrar.RegisterDiscovered(ctx, record.Links, item.Depth)
	wp.metrics.RecordLinksDiscovered(created)

	wp.log.Info("page crawled",
		logger.String("url", item.URL),
		logger.Int("depth", item.Depth),
		logger.Int("links_found", len(record.Links)),
		logger.Int("links_registered", created),
	)

	return true
}

// recordDomainSuccess advances the per-domain crawl counter after a
// successful job.
func (wp *WorkerPool) recordDomainSuccess(ctx context.Context, rawURL string) {
	host, hostErr := hostOf(rawURL)
	if hostErr != nil {
		return
	}

	if quotaErr := wp.quota.RegisterSuccess(ctx, host); quotaErr != nil {
		wp.log.Error("failed to record domain success",
			logger.String("domain", host),
			logger.Error(quotaErr),
		)
	}
}
