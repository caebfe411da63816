package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client is the shared Redis handle behind the mailbox store, the
// feature cache, and both event streams. One client per process keeps
// a single connection pool across all of them.
type Client struct {
	*redis.Client
}

// NewClient parses the URL (redis://[:password@]host:port[/db]),
// connects, and verifies the connection so startup fails fast when
// Redis is unreachable.
func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{Client: client}, nil
}
