package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialfeed/internal/model"
)

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, followerID, followeeID string) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to create follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followeeID string) error {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`
	if _, err := r.db.ExecContext(ctx, query, followerID, followeeID); err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	return nil
}

// FollowerIDs hits the followee index; LIMIT keeps celebrity authors
// from dragging the whole edge set into memory.
func (r *followRepository) FollowerIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	var ids []string
	query := `SELECT follower_id FROM follows WHERE followee_id = $1 LIMIT $2`
	if err := r.db.SelectContext(ctx, &ids, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get follower ids: %w", err)
	}
	return ids, nil
}

func (r *followRepository) Followers(ctx context.Context, userID string, limit int) ([]model.User, error) {
	var users []model.User
	query := `
		SELECT u.user_id, u.username, u.display_name, u.created_at
		FROM follows f
		JOIN users u ON u.user_id = f.follower_id
		WHERE f.followee_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &users, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return users, nil
}
