package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialfeed/internal/model"
	"socialfeed/internal/queue"
)

func strPtr(s string) *string { return &s }

func TestCreatePostPublishesEvent(t *testing.T) {
	users := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{UserID: id, Username: "alice"}, nil
		},
	}
	posts := &mockPostRepo{}
	cache := &mockFeatureCache{}

	var event queue.NewPostEvent
	pub := &mockPublisher{
		NewPostFunc: func(ctx context.Context, e queue.NewPostEvent) (string, error) {
			event = e
			return "1-0", nil
		},
	}

	svc := NewPostService(users, posts, cache, &mockMediaStore{}, pub)
	resp, err := svc.Create(context.Background(), model.CreatePostRequest{
		UserID:  "u1",
		Content: strPtr("hello world"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.PostID)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, strPtr("alice"), resp.Username)

	assert.Equal(t, resp.PostID, event.PostID)
	assert.Equal(t, "u1", event.UserID)
	assert.Equal(t, "hello world", event.Content)

	// The post's initial feature row was seeded for the fallback path.
	assert.Equal(t, []string{resp.PostID}, cache.SetPostCalls)
}

func TestCreatePostUnknownAuthor(t *testing.T) {
	users := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return nil, model.ErrUserNotFound
		},
	}

	svc := NewPostService(users, &mockPostRepo{}, &mockFeatureCache{}, &mockMediaStore{}, &mockPublisher{})
	_, err := svc.Create(context.Background(), model.CreatePostRequest{UserID: "ghost", Content: strPtr("x")})
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestCreatePostRejectsEmpty(t *testing.T) {
	svc := NewPostService(&mockUserRepo{}, &mockPostRepo{}, &mockFeatureCache{}, &mockMediaStore{}, &mockPublisher{})
	_, err := svc.Create(context.Background(), model.CreatePostRequest{UserID: "u1"})
	assert.Error(t, err)
}

func TestCreatePostWithMedia(t *testing.T) {
	media := &mockMediaStore{
		UploadFunc: func(ctx context.Context, mediaBase64, mediaType string) (string, error) {
			assert.Equal(t, "image", mediaType)
			return "image/key.jpg", nil
		},
	}

	var created *model.Post
	posts := &mockPostRepo{
		CreateFunc: func(ctx context.Context, post *model.Post) error {
			created = post
			return nil
		},
	}

	svc := NewPostService(&mockUserRepo{}, posts, &mockFeatureCache{}, media, &mockPublisher{})
	resp, err := svc.Create(context.Background(), model.CreatePostRequest{
		UserID:      "u1",
		MediaBase64: strPtr("aGVsbG8="),
		MediaType:   strPtr("image"),
	})
	require.NoError(t, err)

	require.NotNil(t, created.MediaKey)
	assert.Equal(t, "image/key.jpg", *created.MediaKey)
	require.NotNil(t, resp.MediaURL)
}

func TestCreatePostMediaUploadFailureDropsAttachment(t *testing.T) {
	media := &mockMediaStore{
		UploadFunc: func(ctx context.Context, mediaBase64, mediaType string) (string, error) {
			return "", errors.New("minio down")
		},
	}

	var created *model.Post
	posts := &mockPostRepo{
		CreateFunc: func(ctx context.Context, post *model.Post) error {
			created = post
			return nil
		},
	}

	svc := NewPostService(&mockUserRepo{}, posts, &mockFeatureCache{}, media, &mockPublisher{})
	_, err := svc.Create(context.Background(), model.CreatePostRequest{
		UserID:      "u1",
		Content:     strPtr("text survives"),
		MediaBase64: strPtr("aGVsbG8="),
		MediaType:   strPtr("image"),
	})
	require.NoError(t, err)
	assert.Nil(t, created.MediaKey)
}

func TestCreatePostSurvivesPublishFailure(t *testing.T) {
	pub := &mockPublisher{
		NewPostFunc: func(ctx context.Context, e queue.NewPostEvent) (string, error) {
			return "", errors.New("stream down")
		},
	}

	svc := NewPostService(&mockUserRepo{}, &mockPostRepo{}, &mockFeatureCache{}, &mockMediaStore{}, pub)
	resp, err := svc.Create(context.Background(), model.CreatePostRequest{UserID: "u1", Content: strPtr("x")})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.PostID)
}

func TestLikeRefreshesFeatureCache(t *testing.T) {
	posts := &mockPostRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*model.Post, error) {
			return &model.Post{PostID: id, LikeCount: 4}, nil
		},
	}
	cache := &mockFeatureCache{}

	svc := NewPostService(&mockUserRepo{}, posts, cache, &mockMediaStore{}, &mockPublisher{})
	require.NoError(t, svc.Like(context.Background(), "p1", model.LikeRequest{UserID: "u1"}))
	assert.Equal(t, []string{"p1"}, cache.SetPostCalls)
}

func TestLikeIdempotent(t *testing.T) {
	posts := &mockPostRepo{
		AddLikeFunc: func(ctx context.Context, userID, postID string) (bool, error) {
			return false, nil // already liked
		},
	}
	cache := &mockFeatureCache{}

	svc := NewPostService(&mockUserRepo{}, posts, cache, &mockMediaStore{}, &mockPublisher{})
	require.NoError(t, svc.Like(context.Background(), "p1", model.LikeRequest{UserID: "u1"}))
	assert.Empty(t, cache.SetPostCalls)
}

func TestLikeUnknownPost(t *testing.T) {
	posts := &mockPostRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*model.Post, error) {
			return nil, model.ErrPostNotFound
		},
	}

	svc := NewPostService(&mockUserRepo{}, posts, &mockFeatureCache{}, &mockMediaStore{}, &mockPublisher{})
	err := svc.Like(context.Background(), "gone", model.LikeRequest{UserID: "u1"})
	assert.ErrorIs(t, err, model.ErrPostNotFound)
}
