package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema mirrors the relational side of the feed system: user profiles,
// the social graph, post metadata, and likes. Media bytes live in MinIO;
// impressions live in Pinot, not here.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id      VARCHAR(36) PRIMARY KEY,
		username     VARCHAR(100) UNIQUE NOT NULL,
		display_name VARCHAR(255),
		created_at   TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS follows (
		follower_id VARCHAR(36) NOT NULL REFERENCES users(user_id),
		followee_id VARCHAR(36) NOT NULL REFERENCES users(user_id),
		created_at  TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (follower_id, followee_id)
	)`,
	// Fast lookup "who follows user X?" for the fan-out worker.
	`CREATE INDEX IF NOT EXISTS idx_followee ON follows (followee_id)`,
	`CREATE TABLE IF NOT EXISTS posts (
		post_id    VARCHAR(36) PRIMARY KEY,
		user_id    VARCHAR(36) NOT NULL REFERENCES users(user_id),
		content    TEXT,
		media_key  VARCHAR(500),
		media_type VARCHAR(20),
		like_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_user ON posts (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at)`,
	`CREATE TABLE IF NOT EXISTS likes (
		user_id    VARCHAR(36) NOT NULL REFERENCES users(user_id),
		post_id    VARCHAR(36) NOT NULL REFERENCES posts(post_id),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, post_id)
	)`,
}

// EnsureSchema creates missing tables and indexes at startup.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
