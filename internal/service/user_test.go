package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialfeed/internal/model"
)

func TestCreateUserSeedsColdStartState(t *testing.T) {
	var vectorUser string
	var vectorDim int
	cache := &mockFeatureCache{
		SetVectorFunc: func(ctx context.Context, userID string, vec []float32, ttl time.Duration) error {
			vectorUser = userID
			vectorDim = len(vec)
			return nil
		},
	}

	svc := NewUserService(&mockUserRepo{}, &mockFollowRepo{}, cache, 16)
	user, err := svc.Create(context.Background(), model.CreateUserRequest{Username: "alice"})
	require.NoError(t, err)

	assert.NotEmpty(t, user.UserID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, []string{user.UserID}, cache.SetUserCalls)
	assert.Equal(t, user.UserID, vectorUser)
	assert.Equal(t, 16, vectorDim)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	users := &mockUserRepo{
		ExistsFunc: func(ctx context.Context, username string) (bool, error) {
			return true, nil
		},
	}

	svc := NewUserService(users, &mockFollowRepo{}, &mockFeatureCache{}, 16)
	_, err := svc.Create(context.Background(), model.CreateUserRequest{Username: "taken"})
	assert.ErrorIs(t, err, model.ErrUsernameTaken)
}

func TestCreateUserRequiresUsername(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, &mockFollowRepo{}, &mockFeatureCache{}, 16)
	_, err := svc.Create(context.Background(), model.CreateUserRequest{})
	assert.Error(t, err)
}

func TestFollowSelfRejected(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, &mockFollowRepo{}, &mockFeatureCache{}, 16)
	err := svc.Follow(context.Background(), model.FollowRequest{FollowerID: "u1", FolloweeID: "u1"})
	assert.ErrorIs(t, err, model.ErrSelfFollow)
}

func TestFollowUnknownFollowee(t *testing.T) {
	users := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			if id == "ghost" {
				return nil, model.ErrUserNotFound
			}
			return &model.User{UserID: id}, nil
		},
	}

	svc := NewUserService(users, &mockFollowRepo{}, &mockFeatureCache{}, 16)
	err := svc.Follow(context.Background(), model.FollowRequest{FollowerID: "u1", FolloweeID: "ghost"})
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestFollowCreatesEdge(t *testing.T) {
	follows := &mockFollowRepo{}
	svc := NewUserService(&mockUserRepo{}, follows, &mockFeatureCache{}, 16)

	require.NoError(t, svc.Follow(context.Background(), model.FollowRequest{FollowerID: "u1", FolloweeID: "u2"}))
	require.Len(t, follows.CreateCalls, 1)
	assert.Equal(t, [2]string{"u1", "u2"}, follows.CreateCalls[0])
}

func TestUnfollowRemovesEdge(t *testing.T) {
	follows := &mockFollowRepo{}
	svc := NewUserService(&mockUserRepo{}, follows, &mockFeatureCache{}, 16)

	require.NoError(t, svc.Unfollow(context.Background(), model.FollowRequest{FollowerID: "u1", FolloweeID: "u2"}))
	require.Len(t, follows.DeleteCalls, 1)
	assert.Equal(t, [2]string{"u1", "u2"}, follows.DeleteCalls[0])
}

func TestFollowersEmptyListNotNil(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, &mockFollowRepo{}, &mockFeatureCache{}, 16)

	users, err := svc.Followers(context.Background(), "u1", 50)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}
