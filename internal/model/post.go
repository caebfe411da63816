package model

import "time"

// Post is a row in the posts table, optionally joined with its author
// (username/display_name) for hydration queries.
type Post struct {
	PostID    string    `db:"post_id" json:"post_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Content   *string   `db:"content" json:"content"`
	MediaKey  *string   `db:"media_key" json:"-"`
	MediaType *string   `db:"media_type" json:"media_type"`
	LikeCount int       `db:"like_count" json:"like_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Populated by the author join in GetByIDs.
	AuthorUsername    *string `db:"author_username" json:"-"`
	AuthorDisplayName *string `db:"author_display_name" json:"-"`
}

// CreatePostRequest is the POST /posts payload. Media arrives as a
// base64 blob and is stored in MinIO; only the object key is persisted.
type CreatePostRequest struct {
	UserID      string  `json:"user_id"`
	Content     *string `json:"content"`
	MediaBase64 *string `json:"media_base64"`
	MediaType   *string `json:"media_type"` // "image" | "video"
}

// PostResponse is a hydrated post with a short-lived presigned media URL.
type PostResponse struct {
	PostID      string    `json:"post_id"`
	UserID      string    `json:"user_id"`
	Username    *string   `json:"username"`
	DisplayName *string   `json:"display_name"`
	Content     *string   `json:"content"`
	MediaURL    *string   `json:"media_url"`
	MediaType   *string   `json:"media_type"`
	LikeCount   int       `json:"like_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// LikeRequest is the POST /posts/{id}/like payload.
type LikeRequest struct {
	UserID string `json:"user_id"`
}
