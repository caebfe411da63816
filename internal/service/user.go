package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"socialfeed/internal/cache"
	"socialfeed/internal/model"
	"socialfeed/internal/repository"
)

// UserService handles profiles and the social graph.
type UserService struct {
	users     repository.UserRepository
	follows   repository.FollowRepository
	cache     cache.FeatureCache
	dimension int
}

func NewUserService(users repository.UserRepository, follows repository.FollowRepository, featureCache cache.FeatureCache, dimension int) *UserService {
	return &UserService{users: users, follows: follows, cache: featureCache, dimension: dimension}
}

// Create registers a user and seeds their cold-start ranking state: a
// zeroed feature row and a random interest vector so discovery works
// on their very first feed request.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	if req.Username == "" {
		return nil, fmt.Errorf("username is required")
	}

	taken, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, model.ErrUsernameTaken
	}

	user := &model.User{
		UserID:      uuid.NewString(),
		Username:    req.Username,
		DisplayName: req.DisplayName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.cache.SetUserFeatures(ctx, user.UserID, map[string]float64{
		"follower_count":      0,
		"following_count":     0,
		"total_posts":         0,
		"avg_engagement_rate": 0,
	}); err != nil {
		log.Printf("[User] feature seed failed: user=%s err=%v", user.UserID, err)
	}
	if err := s.cache.SetInterestVector(ctx, user.UserID, RandomInterestVector(s.dimension), interestVectorTTL); err != nil {
		log.Printf("[User] interest vector seed failed: user=%s err=%v", user.UserID, err)
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Follow creates a follower→followee edge. Both sides must exist and
// self-follows are rejected; refollowing is a no-op.
func (s *UserService) Follow(ctx context.Context, req model.FollowRequest) error {
	if req.FollowerID == req.FolloweeID {
		return model.ErrSelfFollow
	}
	if _, err := s.users.GetByID(ctx, req.FollowerID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, req.FolloweeID); err != nil {
		return err
	}

	_, err := s.follows.Create(ctx, req.FollowerID, req.FolloweeID)
	return err
}

// Unfollow removes the edge. Removing an absent edge is a no-op.
func (s *UserService) Unfollow(ctx context.Context, req model.FollowRequest) error {
	if req.FollowerID == req.FolloweeID {
		return model.ErrSelfFollow
	}
	return s.follows.Delete(ctx, req.FollowerID, req.FolloweeID)
}

// Followers lists follower profiles for the user.
func (s *UserService) Followers(ctx context.Context, userID string, limit int) ([]model.User, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	users, err := s.follows.Followers(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}
