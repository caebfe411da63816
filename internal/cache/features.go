package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"socialfeed/internal/model"
)

// Key prefixes for the local feature cache and interest vectors.
const (
	UserFeatureKeyPrefix    = "uf:"
	PostFeatureKeyPrefix    = "pf:"
	InterestVectorKeyPrefix = "iv:"
)

// FeatureCache is the Redis-backed fallback for the feature store, plus
// the interest-vector blobs used by discovery retrieval. Post ingestion
// seeds it; stage 3 reads it when Feast is unavailable.
type FeatureCache interface {
	GetUserFeatures(ctx context.Context, userID string) (model.UserFeatures, error)
	SetUserFeatures(ctx context.Context, userID string, features map[string]float64) error

	// GetPostFeatures batch-fetches feature hashes for the given posts.
	// Posts without a cached hash map to a zero-valued record.
	GetPostFeatures(ctx context.Context, postIDs []string) (map[string]model.PostFeatures, error)
	SetPostFeatures(ctx context.Context, postID string, features map[string]string) error

	// GetInterestVector returns (nil, nil) when no vector is stored.
	GetInterestVector(ctx context.Context, userID string) ([]float32, error)
	SetInterestVector(ctx context.Context, userID string, vec []float32, ttl time.Duration) error
}

// RedisFeatureCache implements FeatureCache on Redis hashes and strings.
type RedisFeatureCache struct {
	client  *redis.Client
	userTTL time.Duration
	postTTL time.Duration
}

// NewFeatureCache creates a FeatureCache backed by Redis.
func NewFeatureCache(client *redis.Client, userTTL, postTTL time.Duration) *RedisFeatureCache {
	return &RedisFeatureCache{client: client, userTTL: userTTL, postTTL: postTTL}
}

func (c *RedisFeatureCache) GetUserFeatures(ctx context.Context, userID string) (model.UserFeatures, error) {
	raw, err := c.client.HGetAll(ctx, UserFeatureKeyPrefix+userID).Result()
	if err != nil {
		return model.UserFeatures{}, fmt.Errorf("get user features: %w", err)
	}
	return model.UserFeaturesFromWire(stringMapToWire(raw)), nil
}

func (c *RedisFeatureCache) SetUserFeatures(ctx context.Context, userID string, features map[string]float64) error {
	key := UserFeatureKeyPrefix + userID
	fields := make(map[string]string, len(features))
	for k, v := range features {
		fields[k] = strconv.FormatFloat(v, 'f', -1, 64)
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, c.userTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set user features: %w", err)
	}
	return nil
}

// GetPostFeatures pipelines one HGETALL per post so a 150-candidate
// fallback costs a single round trip.
func (c *RedisFeatureCache) GetPostFeatures(ctx context.Context, postIDs []string) (map[string]model.PostFeatures, error) {
	if len(postIDs) == 0 {
		return map[string]model.PostFeatures{}, nil
	}

	pipe := c.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(postIDs))
	for i, pid := range postIDs {
		cmds[i] = pipe.HGetAll(ctx, PostFeatureKeyPrefix+pid)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("get post features: %w", err)
	}

	out := make(map[string]model.PostFeatures, len(postIDs))
	for i, pid := range postIDs {
		raw, err := cmds[i].Result()
		if err != nil {
			log.Printf("[FeatureCache] post features read failed: post=%s err=%v", pid, err)
			continue
		}
		out[pid] = model.PostFeaturesFromWire(stringMapToWire(raw))
	}
	return out, nil
}

func (c *RedisFeatureCache) SetPostFeatures(ctx context.Context, postID string, features map[string]string) error {
	key := PostFeatureKeyPrefix + postID

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, features)
	pipe.Expire(ctx, key, c.postTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set post features: %w", err)
	}
	return nil
}

func (c *RedisFeatureCache) GetInterestVector(ctx context.Context, userID string) ([]float32, error) {
	raw, err := c.client.Get(ctx, InterestVectorKeyPrefix+userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get interest vector: %w", err)
	}

	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, fmt.Errorf("parse interest vector: %w", err)
	}
	return vec, nil
}

func (c *RedisFeatureCache) SetInterestVector(ctx context.Context, userID string, vec []float32, ttl time.Duration) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal interest vector: %w", err)
	}
	if err := c.client.Set(ctx, InterestVectorKeyPrefix+userID, data, ttl).Err(); err != nil {
		return fmt.Errorf("set interest vector: %w", err)
	}
	return nil
}

func stringMapToWire(raw map[string]string) map[string]any {
	m := make(map[string]any, len(raw))
	for k, v := range raw {
		m[k] = v
	}
	return m
}
