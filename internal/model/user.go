package model

import "time"

// User is a row in the users table. IDs are opaque UUID strings.
type User struct {
	UserID      string    `db:"user_id" json:"user_id"`
	Username    string    `db:"username" json:"username"`
	DisplayName *string   `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CreateUserRequest is the POST /users payload.
type CreateUserRequest struct {
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name"`
}

// FollowRequest is the POST /users/follow and /users/unfollow payload.
type FollowRequest struct {
	FollowerID string `json:"follower_id"`
	FolloweeID string `json:"followee_id"`
}
