package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// quotaKeyPrefix namespaces the per-domain crawl counters.
	quotaKeyPrefix = "domain:count:"

	// quotaWindow is the sliding window for daily domain quotas. Every
	// increment refreshes it, so the counter decays only after a quiet day.
	quotaWindow = 24 * time.Hour
)

// QuotaCounter tracks successful crawls per domain inside a 24h window.
type QuotaCounter struct {
	client *redis.Client
	max    int
}

// NewQuotaCounter creates a quota counter with the given per-domain budget.
func NewQuotaCounter(client *redis.Client, maxPerDomain int) *QuotaCounter {
	return &QuotaCounter{client: client, max: maxPerDomain}
}

// Increment bumps the domain counter and refreshes its window.
func (q *QuotaCounter) Increment(ctx context.Context, domain string) error {
	pipe := q.client.Pipeline()
	pipe.Incr(ctx, quotaKeyPrefix+domain)
	pipe.Expire(ctx, quotaKeyPrefix+domain, quotaWindow)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment domain quota: %w", err)
	}

	return nil
}

// OverQuota reports whether the domain exceeded its crawl budget. A missing
// counter means the domain is idle and within quota.
func (q *QuotaCounter) OverQuota(ctx context.Context, domain string) (bool, error) {
	count, err := q.client.Get(ctx, quotaKeyPrefix+domain).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read domain quota: %w", err)
	}

	return count > q.max, nil
}
