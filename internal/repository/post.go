package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialfeed/internal/model"
)

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	query := `
		INSERT INTO posts (post_id, user_id, content, media_key, media_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		post.PostID, post.UserID, post.Content, post.MediaKey, post.MediaType).
		Scan(&post.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	query := `
		SELECT p.post_id, p.user_id, p.content, p.media_key, p.media_type,
		       p.like_count, p.created_at,
		       u.username AS author_username, u.display_name AS author_display_name
		FROM posts p
		JOIN users u ON u.user_id = p.user_id
		WHERE p.post_id = $1
	`
	err := r.db.GetContext(ctx, &post, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

func (r *postRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var posts []model.Post
	query := `
		SELECT p.post_id, p.user_id, p.content, p.media_key, p.media_type,
		       p.like_count, p.created_at,
		       u.username AS author_username, u.display_name AS author_display_name
		FROM posts p
		JOIN users u ON u.user_id = p.user_id
		WHERE p.post_id = ANY($1)
	`
	if err := r.db.SelectContext(ctx, &posts, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	return posts, nil
}

func (r *postRepository) AddLike(ctx context.Context, userID, postID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO likes (user_id, post_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, post_id) DO NOTHING
	`, userID, postID)
	if err != nil {
		return false, fmt.Errorf("failed to insert like: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil // already liked
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET like_count = like_count + 1 WHERE post_id = $1`, postID); err != nil {
		return false, fmt.Errorf("failed to bump like count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit like: %w", err)
	}
	return true, nil
}
