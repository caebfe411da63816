package model

import "errors"

// Sentinel errors shared across layers. Handlers map these to HTTP codes;
// the feed pipeline maps dependency failures to its documented fallbacks.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrPostNotFound = errors.New("post not found")

	ErrUsernameTaken = errors.New("username already taken")
	ErrSelfFollow    = errors.New("cannot follow yourself")

	// ErrMailboxUnavailable wraps any Redis failure in the mailbox store.
	// The candidate generator treats it as "zero social candidates".
	ErrMailboxUnavailable = errors.New("mailbox unavailable")
)
