package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/gosearch/internal/logger"
	"github.com/jonesrussell/gosearch/internal/metrics"
)

// defaultStaleAfter is twice the default job timeout.
const defaultStaleAfter = 2 * defaultJobTimeout

// ReapStore resets stale crawling reservations.
type ReapStore interface {
	ReapStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Reaper returns crawling rows abandoned by crashed workers to pending.
type Reaper struct {
	store      ReapStore
	staleAfter time.Duration
	log        logger.Logger
	metrics    *metrics.Metrics
}

// NewReaper creates a reaper that resets reservations older than staleAfter.
func NewReaper(store ReapStore, staleAfter time.Duration, log logger.Logger, m *metrics.Metrics) *Reaper {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &Reaper{
		store:      store,
		staleAfter: staleAfter,
		log:        log,
		metrics:    m,
	}
}

// Tick runs one reap pass and returns the number of reservations reset.
func (r *Reaper) Tick(ctx context.Context) (int64, error) {
	reaped, err := r.store.ReapStale(ctx, r.staleAfter)
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale reservations: %w", err)
	}

	if reaped > 0 {
		r.metrics.RecordReaped(reaped)
		r.log.Info("reset stale crawl reservations", logger.Int64("count", reaped))
	}

	return reaped, nil
}
