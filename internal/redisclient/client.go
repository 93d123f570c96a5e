// Package redisclient provides the shared Redis connection and the
// coordination primitives built on it: the per-domain dispatch lock and the
// per-domain crawl quota counter.
package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmptyURL is returned when the Redis URL is not configured.
var ErrEmptyURL = errors.New("redis URL is required")

// connectionTimeout is the timeout for verifying the Redis connection.
const connectionTimeout = 5 * time.Second

// New creates a Redis client from a DSN URL and verifies the connection.
func New(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, ErrEmptyURL
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", pingErr)
	}

	return client, nil
}
