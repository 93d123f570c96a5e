// Package robots enforces robots.txt policy for crawl targets, caching
// fetched rule bodies per host in Redis so every worker and the dispatcher
// share one view of a host's rules.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/temoto/robotstxt"
)

// robotsTxtPath is the well-known path for robots.txt files.
const robotsTxtPath = "/robots.txt"

// cacheKeyPrefix prefixes the per-host cache keys.
const cacheKeyPrefix = "robots:"

// maxBodyBytes limits the size of robots.txt responses we will read.
const maxBodyBytes = 512 * 1024 // 512 KB

// defaultCacheTTL is used when no TTL is configured.
const defaultCacheTTL = 24 * time.Hour

// Checker fetches, caches, and evaluates robots.txt rules per host.
//
// The cache stores the raw response body; an empty cached body records a
// permissive decision (missing or errored robots.txt). Re-parsing on each
// check is cheap and keeps the cache a plain string.
type Checker struct {
	httpClient *http.Client
	cache      *redis.Client
	userAgent  string
	cacheTTL   time.Duration
}

// NewChecker creates a robots.txt checker backed by the given Redis cache.
func NewChecker(
	httpClient *http.Client,
	cache *redis.Client,
	userAgent string,
	cacheTTL time.Duration,
) *Checker {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	return &Checker{
		httpClient: httpClient,
		cache:      cache,
		userAgent:  userAgent,
		cacheTTL:   cacheTTL,
	}
}

// Allowed reports whether the configured user-agent may fetch the given URL
// under the host's robots.txt.
//
// Missing robots.txt (4xx/5xx) is allow-all and cached for the TTL. A
// network failure is allow-all without caching, so the next call retries.
func (c *Checker) Allowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return false, fmt.Errorf("robots: parse url: %w", parseErr)
	}

	host := strings.ToLower(parsed.Host)
	if host == "" {
		return false, fmt.Errorf("robots: empty host in url %q", rawURL)
	}

	body, cached := c.cachedBody(ctx, host)
	if !cached {
		fetched, ok := c.fetchBody(ctx, host, parsed.Scheme)
		if !ok {
			return true, nil
		}

		c.storeBody(ctx, host, fetched)
		body = fetched
	}

	return evaluate(body, parsed.Path, c.userAgent), nil
}

// cachedBody returns the cached robots.txt body for the host. Cache read
// failures count as a miss so an unavailable cache never blocks a check.
func (c *Checker) cachedBody(ctx context.Context, host string) (string, bool) {
	body, err := c.cache.Get(ctx, cacheKeyPrefix+host).Result()
	if err != nil {
		return "", false
	}

	return body, true
}

// storeBody caches the robots.txt body for the host. Write failures are
// ignored; the next check refetches.
func (c *Checker) storeBody(ctx context.Context, host, body string) {
	c.cache.Set(ctx, cacheKeyPrefix+host, body, c.cacheTTL)
}

// fetchBody fetches robots.txt for the host. The second return value is
// false only on a network-level failure, which must not be cached.
// A non-2xx status yields an empty body, recording the permissive decision.
func (c *Checker) fetchBody(ctx context.Context, host, scheme string) (string, bool) {
	if scheme == "" {
		scheme = "https"
	}

	robotsURL := scheme + "://" + host + robotsTxtPath

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if reqErr != nil {
		return "", false
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", true
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if readErr != nil {
		return "", false
	}

	return string(body), true
}

// evaluate parses a robots.txt body and tests the path for the agent.
// An empty or unparseable body allows everything.
func evaluate(body, path, agent string) bool {
	if body == "" {
		return true
	}

	data, parseErr := robotstxt.FromString(body)
	if parseErr != nil {
		return true
	}

	if path == "" {
		path = "/"
	}

	return data.TestAgent(path, agent)
}
