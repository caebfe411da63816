package queue

import (
	"encoding/json"
	"fmt"
)

// Stream names. new-posts drives the fan-out worker; impressions feeds
// the impression store's ingestion pipeline.
const (
	StreamNewPosts    = "new-posts"
	StreamImpressions = "impressions"
)

// NewPostEvent is published after a post is persisted. The fan-out
// worker expands it into follower mailbox writes; ordering per author
// holds because each author's events land on one stream.
type NewPostEvent struct {
	PostID  string `json:"post_id"`
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// ImpressionEvent records that a user was served a post. One event per
// served post so downstream ingestion stays row-level.
type ImpressionEvent struct {
	UserID    string `json:"user_id"`
	PostID    string `json:"post_id"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
}

// toStreamValues serializes an event for XADD. The partition key rides
// alongside the payload so consumers can shard on it.
func toStreamValues(key string, event any) (map[string]any, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]any{"key": key, "data": string(data)}, nil
}

// ParseNewPostEvent decodes a NewPostEvent from stream message values.
func ParseNewPostEvent(values map[string]any) (NewPostEvent, error) {
	var event NewPostEvent
	if err := parseData(values, &event); err != nil {
		return NewPostEvent{}, err
	}
	if event.PostID == "" || event.UserID == "" {
		return NewPostEvent{}, fmt.Errorf("malformed new-post event: %v", values)
	}
	return event, nil
}

// ParseImpressionEvent decodes an ImpressionEvent from stream message values.
func ParseImpressionEvent(values map[string]any) (ImpressionEvent, error) {
	var event ImpressionEvent
	if err := parseData(values, &event); err != nil {
		return ImpressionEvent{}, err
	}
	return event, nil
}

func parseData(values map[string]any, out any) error {
	data, ok := values["data"].(string)
	if !ok {
		return fmt.Errorf("missing or invalid 'data' field")
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	return nil
}
