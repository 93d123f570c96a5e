// Package anomaly screens crawl targets for spider traps and enforces the
// per-domain daily crawl quota.
package anomaly

import (
	"context"
	"net/url"
	"strings"

	"github.com/jonesrussell/gosearch/internal/redisclient"
)

// defaultMaxURLLength caps the raw URL length before a target is treated
// as a trap.
const defaultMaxURLLength = 256

// defaultMaxRepeats is the consecutive path segment repetition threshold.
const defaultMaxRepeats = 3

// Gate rejects URLs that look like crawler traps and tracks how many pages
// each domain has yielded in the current window.
//
// Calendar-style traps produce paths like /2026/2026/2026 or unbounded
// query-stuffed URLs; both patterns are cut off here before they reach the
// queue.
type Gate struct {
	quota        *redisclient.QuotaCounter
	maxURLLength int
	maxRepeats   int
}

// NewGate creates an anomaly gate backed by the given quota counter.
func NewGate(quota *redisclient.QuotaCounter, maxURLLength, maxRepeats int) *Gate {
	if maxURLLength <= 0 {
		maxURLLength = defaultMaxURLLength
	}

	if maxRepeats <= 0 {
		maxRepeats = defaultMaxRepeats
	}

	return &Gate{
		quota:        quota,
		maxURLLength: maxURLLength,
		maxRepeats:   maxRepeats,
	}
}

// IsAnomalous reports whether the URL matches a trap pattern: longer than
// the configured maximum, unparseable, or a path whose segments repeat
// consecutively past the repetition threshold.
func (g *Gate) IsAnomalous(rawURL string) bool {
	if len(rawURL) > g.maxURLLength {
		return true
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	return hasRepeatedSegments(parsed.Path, g.maxRepeats)
}

// OverQuota reports whether the domain has exceeded its crawl quota for
// the current window.
func (g *Gate) OverQuota(ctx context.Context, domain string) (bool, error) {
	return g.quota.OverQuota(ctx, domain)
}

// RegisterSuccess counts a successfully crawled page against the domain's
// quota.
func (g *Gate) RegisterSuccess(ctx context.Context, domain string) error {
	return g.quota.Increment(ctx, domain)
}

// hasRepeatedSegments reports whether any path segment repeats
// consecutively at least maxRepeats times beyond its first occurrence.
// /a/a/a/a trips a threshold of 3; /a/a/a does not.
func hasRepeatedSegments(path string, maxRepeats int) bool {
	var prev string

	repeats := 0

	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}

		if segment == prev {
			repeats++
			if repeats >= maxRepeats {
				return true
			}

			continue
		}

		repeats = 0
		prev = segment
	}

	return false
}
