package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"socialfeed/internal/model"
)

// MailboxKeyPrefix is the key prefix for per-user feed mailboxes.
const MailboxKeyPrefix = "feed:"

// Mailbox is the per-user bounded, time-ordered set of candidate post
// IDs, written by the fan-out worker and read during social retrieval.
// Failures are wrapped in model.ErrMailboxUnavailable so callers can
// degrade to discovery-only retrieval.
type Mailbox interface {
	// Push upserts the post with the given score, trims the mailbox to
	// the size cap, and refreshes the sliding TTL as one pipelined
	// batch so eviction never races ahead of insert.
	Push(ctx context.Context, userID, postID string, score float64) error

	// Top returns up to n post IDs ordered by score descending.
	// A missing key yields an empty list.
	Top(ctx context.Context, userID string, n int) ([]string, error)

	// Remove deletes the post from the mailbox. Idempotent.
	Remove(ctx context.Context, userID, postID string) error

	// Size returns the number of entries in a user's mailbox.
	Size(ctx context.Context, userID string) (int64, error)
}

// RedisMailbox implements Mailbox on Redis sorted sets.
type RedisMailbox struct {
	client  *redis.Client
	maxSize int
	ttl     time.Duration
}

// NewMailbox creates a Mailbox backed by Redis.
func NewMailbox(client *redis.Client, maxSize int, ttl time.Duration) *RedisMailbox {
	return &RedisMailbox{client: client, maxSize: maxSize, ttl: ttl}
}

func mailboxKey(userID string) string {
	return MailboxKeyPrefix + userID
}

// Push pipelines ZADD + ZREMRANGEBYRANK (trim to cap) + EXPIRE (refresh TTL).
// Redis sequences the pipeline per connection, so no reader observes a
// mailbox trimmed before the new member is visible.
func (m *RedisMailbox) Push(ctx context.Context, userID, postID string, score float64) error {
	key := mailboxKey(userID)

	pipe := m.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: postID})
	// Keep the maxSize highest scores (newest); rank 0 is the lowest.
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-m.maxSize-1))
	pipe.Expire(ctx, key, m.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[Mailbox] Push FAILED: user=%s post=%s err=%v", userID, postID, err)
		return fmt.Errorf("%w: push: %v", model.ErrMailboxUnavailable, err)
	}
	return nil
}

// Top reads the newest n post IDs via ZREVRANGE.
func (m *RedisMailbox) Top(ctx context.Context, userID string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	ids, err := m.client.ZRevRange(ctx, mailboxKey(userID), 0, int64(n-1)).Result()
	if err != nil {
		log.Printf("[Mailbox] Top FAILED: user=%s err=%v", userID, err)
		return nil, fmt.Errorf("%w: top: %v", model.ErrMailboxUnavailable, err)
	}
	return ids, nil
}

// Remove deletes one member. Removing an absent member is a no-op.
func (m *RedisMailbox) Remove(ctx context.Context, userID, postID string) error {
	if err := m.client.ZRem(ctx, mailboxKey(userID), postID).Err(); err != nil {
		log.Printf("[Mailbox] Remove FAILED: user=%s post=%s err=%v", userID, postID, err)
		return fmt.Errorf("%w: remove: %v", model.ErrMailboxUnavailable, err)
	}
	return nil
}

// Size returns the mailbox cardinality.
func (m *RedisMailbox) Size(ctx context.Context, userID string) (int64, error) {
	size, err := m.client.ZCard(ctx, mailboxKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: size: %v", model.ErrMailboxUnavailable, err)
	}
	return size, nil
}
