package queue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is a raw message read from a stream. The worker parses the
// values with the stream's event decoder.
type Message struct {
	ID     string
	Values map[string]any
}

// Consumer reads from a stream via a consumer group, giving at-least-once
// delivery: a message is redelivered until it is acknowledged.
type Consumer interface {
	// EnsureGroup creates the consumer group if it doesn't exist.
	// Call at worker startup.
	EnsureGroup(ctx context.Context, stream, group string) error

	// Read fetches up to count new messages for this consumer, blocking
	// up to block for new entries.
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)

	// ReadPending fetches up to count of this consumer's pending entries
	// with IDs after start ("0" scans from the beginning). Pending
	// entries are messages delivered but never acknowledged: crash
	// leftovers and failed events awaiting retry.
	ReadPending(ctx context.Context, stream, group, consumer, start string, count int64) ([]Message, error)

	// Ack marks messages as processed, removing them from the pending list.
	Ack(ctx context.Context, stream, group string, messageIDs ...string) error
}

// RedisConsumer implements Consumer using Redis Streams.
type RedisConsumer struct {
	client *redis.Client
}

// NewConsumer creates a Consumer backed by Redis Streams.
func NewConsumer(client *redis.Client) *RedisConsumer {
	return &RedisConsumer{client: client}
}

// EnsureGroup uses XGROUP CREATE with MKSTREAM so both stream and group
// exist. "0" starts the group at the beginning of the stream.
func (c *RedisConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil {
		// BUSYGROUP means the group already exists.
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return fmt.Errorf("create consumer group: %w", err)
	}
	log.Printf("[Consumer] created group %s on stream %s", group, stream)
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	// ">" reads only messages never delivered to any consumer.
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil // timeout, no new messages
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	return flatten(streams), nil
}

func (c *RedisConsumer) ReadPending(ctx context.Context, stream, group, consumer, start string, count int64) ([]Message, error) {
	// A concrete ID instead of ">" reads this consumer's pending
	// entries with IDs greater than start.
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, start},
		Count:    count,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup pending: %w", err)
	}
	return flatten(streams), nil
}

func (c *RedisConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, stream, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func flatten(streams []redis.XStream) []Message {
	var messages []Message
	for _, s := range streams {
		for _, msg := range s.Messages {
			messages = append(messages, Message{ID: msg.ID, Values: msg.Values})
		}
	}
	return messages
}
