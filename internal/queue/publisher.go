package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher writes feed events onto the Redis streams. XADD is a
// synchronous acknowledged write; idempotence on redelivery is the
// consumer's job (mailbox pushes are upserts).
type Publisher interface {
	// PublishNewPost emits one event on the new-posts stream, keyed by
	// the author so per-author publish order is preserved.
	PublishNewPost(ctx context.Context, event NewPostEvent) (messageID string, err error)

	// PublishImpressions emits one impressions event per served post.
	PublishImpressions(ctx context.Context, userID string, postIDs []string) error
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
}

// NewPublisher creates a Publisher backed by Redis Streams.
func NewPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishNewPost(ctx context.Context, event NewPostEvent) (string, error) {
	values, err := toStreamValues(event.UserID, event)
	if err != nil {
		return "", err
	}

	// "*" lets Redis assign the timestamp-sequence message ID.
	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamNewPosts,
		Values: values,
	}).Result()
	if err != nil {
		log.Printf("[Publisher] NewPost FAILED: post=%s author=%s err=%v", event.PostID, event.UserID, err)
		return "", fmt.Errorf("xadd new-post: %w", err)
	}

	log.Printf("[Publisher] NewPost OK: post=%s author=%s msgID=%s", event.PostID, event.UserID, messageID)
	return messageID, nil
}

func (p *RedisPublisher) PublishImpressions(ctx context.Context, userID string, postIDs []string) error {
	if len(postIDs) == 0 {
		return nil
	}

	ts := time.Now().UnixMilli()
	pipe := p.client.Pipeline()
	for _, pid := range postIDs {
		values, err := toStreamValues(userID, ImpressionEvent{
			UserID:    userID,
			PostID:    pid,
			Timestamp: ts,
		})
		if err != nil {
			return err
		}
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: StreamImpressions, Values: values})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[Publisher] Impressions FAILED: user=%s count=%d err=%v", userID, len(postIDs), err)
		return fmt.Errorf("xadd impressions: %w", err)
	}

	log.Printf("[Publisher] Impressions OK: user=%s count=%d", userID, len(postIDs))
	return nil
}
