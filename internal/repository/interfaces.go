package repository

import (
	"context"

	"socialfeed/internal/model"
)

// UserRepository handles user profile persistence.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	// GetByID returns model.ErrUserNotFound when the user doesn't exist.
	GetByID(ctx context.Context, id string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// PostRepository handles post metadata persistence.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	// GetByID returns model.ErrPostNotFound when the post doesn't exist.
	GetByID(ctx context.Context, id string) (*model.Post, error)
	// GetByIDs batch-loads posts with their author's username and
	// display name joined in. Missing IDs are silently absent.
	GetByIDs(ctx context.Context, ids []string) ([]model.Post, error)
	// AddLike records a like and bumps the counter. Returns false if
	// the user already liked the post.
	AddLike(ctx context.Context, userID, postID string) (bool, error)
}

// FollowRepository handles the social graph.
type FollowRepository interface {
	// Create returns false if the edge already existed.
	Create(ctx context.Context, followerID, followeeID string) (bool, error)
	Delete(ctx context.Context, followerID, followeeID string) error
	// FollowerIDs returns up to limit followers of the user, via the
	// followee index. The fan-out worker passes cap+1 to detect
	// celebrity authors without counting the whole edge set.
	FollowerIDs(ctx context.Context, userID string, limit int) ([]string, error)
	// Followers returns follower profiles for the listing endpoint.
	Followers(ctx context.Context, userID string, limit int) ([]model.User, error)
}
