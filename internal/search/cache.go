package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/gosearch/internal/domain"
	"github.com/jonesrussell/gosearch/internal/logger"
)

const (
	cacheKeyPrefix  = "search:"
	defaultCacheTTL = 300 * time.Second
)

// ResultCache memoizes search payloads in Redis. Read failures of any
// kind count as a miss; write failures are logged, never raised.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// NewResultCache creates a result cache with the given TTL.
func NewResultCache(client *redis.Client, ttl time.Duration, log logger.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &ResultCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Get returns the cached payload for the query shape, if present.
func (c *ResultCache) Get(
	ctx context.Context,
	normalizedQuery string,
	filters domain.SearchFilters,
	limit int,
) (*SearchResponse, bool) {
	raw, err := c.client.Get(ctx, cacheKey(normalizedQuery, filters, limit)).Result()
	if err != nil {
		return nil, false
	}

	var payload SearchResponse
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, false
	}

	return &payload, true
}

// Put stores the payload for the query shape.
func (c *ResultCache) Put(
	ctx context.Context,
	normalizedQuery string,
	filters domain.SearchFilters,
	limit int,
	payload *SearchResponse,
) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("failed to encode search results for cache", logger.Error(err))
		return
	}

	key := cacheKey(normalizedQuery, filters, limit)
	if setErr := c.client.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
		c.log.Error("failed to cache search results", logger.Error(setErr))
	}
}

// cacheKey hashes the query shape into a stable key. Maps marshal with
// sorted keys, so the digest is deterministic.
func cacheKey(normalizedQuery string, filters domain.SearchFilters, limit int) string {
	payload, _ := json.Marshal(map[string]any{
		"q": normalizedQuery,
		"f": map[string]any{
			"category":       filters.Category,
			"domain":         filters.Domain,
			"date_from":      filters.DateFrom,
			"date_to":        filters.DateTo,
			"include_images": filters.IncludeImages,
		},
		"l": limit,
	})

	sum := sha256.Sum256(payload)

	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
