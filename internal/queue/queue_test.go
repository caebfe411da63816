package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPublishAndConsumeNewPost(t *testing.T) {
	client := setupTestRedis(t)
	pub := NewPublisher(client)
	con := NewConsumer(client)
	ctx := context.Background()

	require.NoError(t, con.EnsureGroup(ctx, StreamNewPosts, "g1"))

	msgID, err := pub.PublishNewPost(ctx, NewPostEvent{
		PostID:  "p1",
		UserID:  "author-1",
		Content: "hello",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msgID)

	messages, err := con.Read(ctx, StreamNewPosts, "g1", "c1", 10, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	event, err := ParseNewPostEvent(messages[0].Values)
	require.NoError(t, err)
	assert.Equal(t, "p1", event.PostID)
	assert.Equal(t, "author-1", event.UserID)
	assert.Equal(t, "hello", event.Content)
}

func TestEnsureGroupIdempotent(t *testing.T) {
	client := setupTestRedis(t)
	con := NewConsumer(client)
	ctx := context.Background()

	require.NoError(t, con.EnsureGroup(ctx, StreamNewPosts, "g1"))
	require.NoError(t, con.EnsureGroup(ctx, StreamNewPosts, "g1"))
}

func TestAckClearsPending(t *testing.T) {
	client := setupTestRedis(t)
	pub := NewPublisher(client)
	con := NewConsumer(client)
	ctx := context.Background()

	require.NoError(t, con.EnsureGroup(ctx, StreamNewPosts, "g1"))
	_, err := pub.PublishNewPost(ctx, NewPostEvent{PostID: "p1", UserID: "a1"})
	require.NoError(t, err)

	messages, err := con.Read(ctx, StreamNewPosts, "g1", "c1", 10, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	// Unacked messages show up on the pending read.
	pending, err := con.ReadPending(ctx, StreamNewPosts, "g1", "c1", "0", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, con.Ack(ctx, StreamNewPosts, "g1", messages[0].ID))

	pending, err = con.ReadPending(ctx, StreamNewPosts, "g1", "c1", "0", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPublishImpressionsOnePerPost(t *testing.T) {
	client := setupTestRedis(t)
	pub := NewPublisher(client)
	ctx := context.Background()

	require.NoError(t, pub.PublishImpressions(ctx, "u1", []string{"p1", "p2", "p3"}))

	entries, err := client.XRange(ctx, StreamImpressions, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	seen := map[string]bool{}
	for _, entry := range entries {
		event, err := ParseImpressionEvent(entry.Values)
		require.NoError(t, err)
		assert.Equal(t, "u1", event.UserID)
		assert.NotZero(t, event.Timestamp)
		seen[event.PostID] = true
	}
	assert.Len(t, seen, 3)
}

func TestPublishImpressionsEmptyIsNoop(t *testing.T) {
	client := setupTestRedis(t)
	pub := NewPublisher(client)
	ctx := context.Background()

	require.NoError(t, pub.PublishImpressions(ctx, "u1", nil))

	exists, err := client.Exists(ctx, StreamImpressions).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestParseNewPostEventMalformed(t *testing.T) {
	_, err := ParseNewPostEvent(map[string]any{"data": "not-json"})
	assert.Error(t, err)

	_, err = ParseNewPostEvent(map[string]any{})
	assert.Error(t, err)

	// Structurally valid JSON missing required fields.
	_, err = ParseNewPostEvent(map[string]any{"data": `{"content":"x"}`})
	assert.Error(t, err)
}
