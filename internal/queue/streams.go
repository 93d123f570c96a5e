// Package queue provides the Redis Streams work queue between the dispatcher
// and the crawl workers.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultStreamName is used when no queue name is configured.
const defaultStreamName = "crawler_queue"

// Client wraps a Redis client with stream operations scoped to one work queue.
type Client struct {
	client *redis.Client
	stream string
}

// NewClient creates a queue client on top of an existing Redis connection.
func NewClient(client *redis.Client, stream string) *Client {
	if stream == "" {
		stream = defaultStreamName
	}
	return &Client{
		client: client,
		stream: stream,
	}
}

// StreamName returns the stream key this queue reads and writes.
func (c *Client) StreamName() string {
	return c.stream
}

// Ping checks if Redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// CreateConsumerGroup creates a consumer group for the stream if it doesn't exist.
func (c *Client) CreateConsumerGroup(ctx context.Context, group string) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// XAdd adds a message to the stream.
func (c *Client) XAdd(ctx context.Context, values map[string]any) (string, error) {
	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream,
		Values: values,
	}).Result()
}

// XReadGroup reads messages from the stream using a consumer group.
func (c *Client) XReadGroup(
	ctx context.Context, group, consumer string, count int64, block time.Duration,
) ([]redis.XStream, error) {
	return c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{c.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
}

// XAck acknowledges messages in the stream.
func (c *Client) XAck(ctx context.Context, group string, ids ...string) error {
	return c.client.XAck(ctx, c.stream, group, ids...).Err()
}

// XPending returns a pending entries summary for the stream.
func (c *Client) XPending(ctx context.Context, group string) (*redis.XPending, error) {
	return c.client.XPending(ctx, c.stream, group).Result()
}

// XPendingExt returns detailed pending entries for the stream.
func (c *Client) XPendingExt(ctx context.Context, group string, count int64) ([]redis.XPendingExt, error) {
	return c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
}

// XClaim claims pending messages for a consumer.
func (c *Client) XClaim(
	ctx context.Context, group, consumer string, minIdle time.Duration, ids ...string,
) ([]redis.XMessage, error) {
	return c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
}

// XLen returns the length of the stream.
func (c *Client) XLen(ctx context.Context) (int64, error) {
	return c.client.XLen(ctx, c.stream).Result()
}

// XTrimMaxLen trims the stream to a maximum length.
func (c *Client) XTrimMaxLen(ctx context.Context, maxLen int64) error {
	return c.client.XTrimMaxLen(ctx, c.stream, maxLen).Err()
}
