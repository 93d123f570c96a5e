package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// URLField is the stream field carrying the work item URL.
	URLField = "url"

	// DepthField is the stream field carrying the discovery depth.
	DepthField = "depth"

	// EnqueuedAtField is the stream field carrying the enqueue timestamp.
	EnqueuedAtField = "enqueued_at"

	// Default max stream length to prevent unbounded growth.
	defaultMaxStreamLen = 10000
)

// Producer enqueues crawl work items onto the stream.
type Producer struct {
	client       *Client
	maxStreamLen int64
}

// ProducerConfig holds configuration for the Producer.
type ProducerConfig struct {
	MaxStreamLen int64 // Maximum stream length (0 = default)
}

// NewProducer creates a new work item producer.
func NewProducer(client *Client, cfg ProducerConfig) *Producer {
	maxLen := cfg.MaxStreamLen
	if maxLen <= 0 {
		maxLen = defaultMaxStreamLen
	}

	return &Producer{
		client:       client,
		maxStreamLen: maxLen,
	}
}

// Enqueue adds a (url, depth) work item to the stream and returns its
// message ID.
func (p *Producer) Enqueue(ctx context.Context, url string, depth int) (string, error) {
	if url == "" {
		return "", errors.New("work item URL cannot be empty")
	}

	values := map[string]any{
		URLField:        url,
		DepthField:      depth,
		EnqueuedAtField: time.Now().UTC().Format(time.RFC3339),
	}

	messageID, err := p.client.XAdd(ctx, values)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue work item: %w", err)
	}

	return messageID, nil
}

// TrimStream trims the stream to the configured maximum length.
func (p *Producer) TrimStream(ctx context.Context) error {
	return p.client.XTrimMaxLen(ctx, p.maxStreamLen)
}

// QueueDepth returns the current stream length.
func (p *Producer) QueueDepth(ctx context.Context) (int64, error) {
	return p.client.XLen(ctx)
}
