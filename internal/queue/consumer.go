package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Default consumer group name.
	defaultConsumerGroup = "workers"

	// Default block timeout for reading from the stream.
	defaultBlockTimeout = 5 * time.Second

	// Default count of messages to read per batch.
	defaultBatchSize = 10

	// Default minimum idle time before claiming pending messages.
	defaultClaimMinIdle = 5 * time.Minute

	// Maximum pending messages to check at once.
	maxPendingCheck = 100
)

// Consumer reads crawl work items from the stream.
type Consumer struct {
	client        *Client
	consumerGroup string
	consumerID    string
	blockTimeout  time.Duration
	batchSize     int64
	claimMinIdle  time.Duration
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	ConsumerGroup string        // Consumer group name
	ConsumerID    string        // Unique consumer identifier
	BlockTimeout  time.Duration // Block timeout for reads (0 = default)
	BatchSize     int64         // Number of messages per read (0 = default)
	ClaimMinIdle  time.Duration // Min idle time before claiming (0 = default)
}

// WorkItem is a dequeued crawl task.
type WorkItem struct {
	MessageID  string
	URL        string
	Depth      int
	EnqueuedAt time.Time
}

// NewConsumer creates a new work item consumer.
func NewConsumer(client *Client, cfg ConsumerConfig) (*Consumer, error) {
	if cfg.ConsumerID == "" {
		return nil, errors.New("consumer ID is required")
	}

	group := cfg.ConsumerGroup
	if group == "" {
		group = defaultConsumerGroup
	}

	blockTimeout := cfg.BlockTimeout
	if blockTimeout <= 0 {
		blockTimeout = defaultBlockTimeout
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	claimMinIdle := cfg.ClaimMinIdle
	if claimMinIdle <= 0 {
		claimMinIdle = defaultClaimMinIdle
	}

	return &Consumer{
		client:        client,
		consumerGroup: group,
		consumerID:    cfg.ConsumerID,
		blockTimeout:  blockTimeout,
		batchSize:     batchSize,
		claimMinIdle:  claimMinIdle,
	}, nil
}

// Initialize creates the consumer group for the stream.
func (c *Consumer) Initialize(ctx context.Context) error {
	if err := c.client.CreateConsumerGroup(ctx, c.consumerGroup); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", c.client.StreamName(), err)
	}
	return nil
}

// Read returns the next batch of work items. Stale pending items abandoned
// by dead consumers are reclaimed before new messages are read.
func (c *Consumer) Read(ctx context.Context) ([]*WorkItem, error) {
	reclaimed := c.reclaimPending(ctx)
	if len(reclaimed) > 0 {
		return reclaimed, nil
	}

	messages, err := c.client.XReadGroup(ctx, c.consumerGroup, c.consumerID, c.batchSize, c.blockTimeout)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // No messages available
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	return parseMessages(messages), nil
}

// Acknowledge marks a work item as processed.
func (c *Consumer) Acknowledge(ctx context.Context, item *WorkItem) error {
	if item == nil {
		return errors.New("work item cannot be nil")
	}
	return c.client.XAck(ctx, c.consumerGroup, item.MessageID)
}

// PendingCount returns the count of delivered-but-unacknowledged items.
func (c *Consumer) PendingCount(ctx context.Context) (int64, error) {
	pending, err := c.client.XPending(ctx, c.consumerGroup)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return pending.Count, nil
}

// reclaimPending claims pending items whose consumer has been idle past the
// threshold, so a crashed worker's items are not lost.
func (c *Consumer) reclaimPending(ctx context.Context) []*WorkItem {
	pending, err := c.client.XPendingExt(ctx, c.consumerGroup, maxPendingCheck)
	if err != nil {
		return nil
	}

	var idsToReclaim []string
	for _, entry := range pending {
		if entry.Idle >= c.claimMinIdle {
			idsToReclaim = append(idsToReclaim, entry.ID)
		}
	}

	if len(idsToReclaim) == 0 {
		return nil
	}

	claimed, claimErr := c.client.XClaim(ctx, c.consumerGroup, c.consumerID, c.claimMinIdle, idsToReclaim...)
	if claimErr != nil {
		return nil
	}

	items := make([]*WorkItem, 0, len(claimed))
	for _, msg := range claimed {
		item, parseErr := parseMessage(msg)
		if parseErr != nil {
			continue // Skip malformed messages
		}
		items = append(items, item)
	}

	return items
}

// parseMessages converts stream messages to work items, skipping malformed ones.
func parseMessages(streams []redis.XStream) []*WorkItem {
	var items []*WorkItem

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			item, err := parseMessage(msg)
			if err != nil {
				continue
			}
			items = append(items, item)
		}
	}

	return items
}

// parseMessage converts a single stream message into a WorkItem.
func parseMessage(msg redis.XMessage) (*WorkItem, error) {
	url, ok := msg.Values[URLField].(string)
	if !ok || url == "" {
		return nil, errors.New("missing or invalid work item URL")
	}

	item := &WorkItem{
		MessageID: msg.ID,
		URL:       url,
	}

	// Stream values come back as strings regardless of the enqueued type.
	if depthStr, hasDepth := msg.Values[DepthField].(string); hasDepth {
		depth, parseErr := strconv.Atoi(depthStr)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid work item depth: %w", parseErr)
		}
		item.Depth = depth
	}

	if enqueuedStr, hasEnqueued := msg.Values[EnqueuedAtField].(string); hasEnqueued {
		if t, parseErr := time.Parse(time.RFC3339, enqueuedStr); parseErr == nil {
			item.EnqueuedAt = t
		}
	}

	return item, nil
}

// ConsumerGroup returns the consumer group name.
func (c *Consumer) ConsumerGroup() string {
	return c.consumerGroup
}

// ConsumerID returns the consumer ID.
func (c *Consumer) ConsumerID() string {
	return c.consumerID
}
