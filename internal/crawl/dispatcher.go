// Package crawl implements the crawl control plane: a score-ordered
// dispatcher that feeds the work queue and a worker pool that runs each
// claimed URL through the fetch, parse, index pipeline.
package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/gosearch/internal/domain"
	"github.com/jonesrussell/gosearch/internal/logger"
	"github.com/jonesrussell/gosearch/internal/metrics"
)

const defaultDispatchLimit = 10

// blockReasonRobots marks URLs disallowed by robots.txt policy.
const blockReasonRobots = "robots"

// DispatchStore provides due crawl candidates and reservation updates.
type DispatchStore interface {
	FetchDue(ctx context.Context, limit int) ([]*domain.CrawlURL, error)
	Reserve(ctx context.Context, url string) (bool, error)
	MarkBlocked(ctx context.Context, url, reason string) error
}

// DomainLocks is the cross-process politeness mutex keyed by domain.
type DomainLocks interface {
	Locked(ctx context.Context, domain string) (bool, error)
	Acquire(ctx context.Context, domain string) (string, bool, error)
	Release(ctx context.Context, domain, token string) error
}

// WorkEnqueuer pushes dispatched URLs onto the work queue.
type WorkEnqueuer interface {
	Enqueue(ctx context.Context, url string, depth int) (string, error)
	QueueDepth(ctx context.Context) (int64, error)
}

// QuotaPolicy reports per-domain crawl quota state.
type QuotaPolicy interface {
	OverQuota(ctx context.Context, domain string) (bool, error)
}

// Dispatcher selects due URLs by score and hands them to the work queue,
// honoring domain locks, quota, and robots policy. The domain lock is a
// politeness mutex, not a data lock; it may expire before the worker
// finishes.
type Dispatcher struct {
	store    DispatchStore
	locks    DomainLocks
	quota    QuotaPolicy
	robots   RobotsPolicy
	producer WorkEnqueuer
	log      logger.Logger
	metrics  *metrics.Metrics
	limit    int
}

// NewDispatcher creates a dispatcher that hands out at most limit URLs per tick.
func NewDispatcher(
	store DispatchStore,
	locks DomainLocks,
	quota QuotaPolicy,
	robots RobotsPolicy,
	producer WorkEnqueuer,
	log logger.Logger,
	m *metrics.Metrics,
	limit int,
) *Dispatcher {
	if limit <= 0 {
		limit = defaultDispatchLimit
	}

	return &Dispatcher{
		store:    store,
		locks:    locks,
		quota:    quota,
		robots:   robots,
		producer: producer,
		log:      log,
		metrics:  m,
		limit:    limit,
	}
}

// Tick runs one dispatch pass and returns the number of URLs enqueued.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	start := time.Now()

	due, err := d.store.FetchDue(ctx, d.limit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch due urls: %w", err)
	}

	dispatched := 0

	for _, candidate := range due {
		if ctx.Err() != nil {
			break
		}

		if dispatched >= d.limit {
			break
		}

		if d.dispatch(ctx, candidate) {
			dispatched++
		}
	}

	d.updateQueueDepth(ctx)

	if dispatched > 0 {
		d.log.Info("dispatch tick complete",
			logger.Int("dispatched", dispatched),
			logger.Int("due", len(due)),
			logger.Duration("elapsed", time.Since(start)),
		)
	}

	return dispatched, nil
}

// dispatch moves one candidate from pending to the work queue. Returns
// true when the URL was enqueued.
func (d *Dispatcher) dispatch(ctx context.Context, candidate *domain.CrawlURL) bool {
	if d.domainBusy(ctx, candidate.Domain) {
		return false
	}

	if d.domainOverQuota(ctx, candidate.Domain) {
		return false
	}

	allowed, robotsErr := d.robots.Allowed(ctx, candidate.URL)
	if robotsErr != nil {
		d.log.Error("robots recheck failed",
			logger.String("url", candidate.URL),
			logger.Error(robotsErr),
		)

		return false
	}

	if !allowed {
		d.blockForRobots(ctx, candidate.URL)
		return false
	}

	token, acquired := d.acquireLock(ctx, candidate.Domain)
	if !acquired {
		return false
	}

	reserved, reserveErr := d.store.Reserve(ctx, candidate.URL)
	if reserveErr != nil || !reserved {
		if reserveErr != nil {
			d.log.Error("failed to reserve url",
				logger.String("url", candidate.URL),
				logger.Error(reserveErr),
			)
		}

		d.releaseLock(ctx, candidate.Domain, token)

		return false
	}

	if _, enqueueErr := d.producer.Enqueue(ctx, candidate.URL, candidate.Depth); enqueueErr != nil {
		// The reserved row stays crawling; the reaper returns it to pending.
		d.log.Error("failed to enqueue url",
			logger.String("url", candidate.URL),
			logger.Error(enqueueErr),
		)

		d.releaseLock(ctx, candidate.Domain, token)

		return false
	}

	d.metrics.RecordDispatch()

	return true
}

// domainBusy reports whether another process holds the domain lock.
// Lock service errors degrade open.
func (d *Dispatcher) domainBusy(ctx context.Context, dom string) bool {
	locked, err := d.locks.Locked(ctx, dom)
	if err != nil {
		d.log.Error("failed to check domain lock",
			logger.String("domain", dom),
			logger.Error(err),
		)

		return false
	}

	return locked
}

// domainOverQuota reports whether the domain exhausted its 24h crawl quota.
// Counter service errors degrade open.
func (d *Dispatcher) domainOverQuota(ctx context.Context, dom string) bool {
	over, err := d.quota.OverQuota(ctx, dom)
	if err != nil {
		d.log.Error("failed to check domain quota",
			logger.String("domain", dom),
			logger.Error(err),
		)

		return false
	}

	return over
}

// acquireLock takes the domain politeness lock. When the lock service is
// unavailable the dispatch proceeds without politeness for this tick.
func (d *Dispatcher) acquireLock(ctx context.Context, dom string) (string, bool) {
	token, ok, err := d.locks.Acquire(ctx, dom)
	if err != nil {
		d.log.Error("failed to acquire domain lock",
			logger.String("domain", dom),
			logger.Error(err),
		)

		return "", true
	}

	return token, ok
}

// releaseLock frees the domain lock after a failed dispatch.
func (d *Dispatcher) releaseLock(ctx context.Context, dom, token string) {
	if token == "" {
		return
	}

	if releaseErr := d.locks.Release(ctx, dom, token); releaseErr != nil {
		d.log.Error("failed to release domain lock",
			logger.String("domain", dom),
			logger.Error(releaseErr),
		)
	}
}

// blockForRobots transitions a URL to blocked after a robots.txt denial.
func (d *Dispatcher) blockForRobots(ctx context.Context, url string) {
	if blockErr := d.store.MarkBlocked(ctx, url, blockReasonRobots); blockErr != nil {
		d.log.Error("failed to mark url blocked",
			logger.String("url", url),
			logger.Error(blockErr),
		)

		return
	}

	d.metrics.RecordBlocked(blockReasonRobots)
	d.log.Info("url blocked by robots policy", logger.String("url", url))
}

// updateQueueDepth refreshes the queue depth gauge after a tick.
func (d *Dispatcher) updateQueueDepth(ctx context.Context) {
	depth, err := d.producer.QueueDepth(ctx)
	if err != nil {
		return
	}

	d.metrics.SetQueueDepth(depth)
}
