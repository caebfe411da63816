package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"socialfeed/internal/cache"
	"socialfeed/internal/metrics"
	"socialfeed/internal/model"
	"socialfeed/internal/queue"
	"socialfeed/internal/repository"
)

// PostService handles the write path: persist the post, seed its
// feature-cache row, and emit the new-post event that drives fan-out.
type PostService struct {
	users     repository.UserRepository
	posts     repository.PostRepository
	cache     cache.FeatureCache
	media     MediaStore
	publisher queue.Publisher
}

func NewPostService(
	users repository.UserRepository,
	posts repository.PostRepository,
	featureCache cache.FeatureCache,
	media MediaStore,
	publisher queue.Publisher,
) *PostService {
	return &PostService{
		users:     users,
		posts:     posts,
		cache:     featureCache,
		media:     media,
		publisher: publisher,
	}
}

// Create persists a post and publishes it to the new-posts stream.
// Media upload failure drops the attachment but keeps the post; a
// failed publish is logged and the post still lands, since discovery
// retrieval reaches it without a mailbox entry.
func (s *PostService) Create(ctx context.Context, req model.CreatePostRequest) (*model.PostResponse, error) {
	author, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if (req.Content == nil || *req.Content == "") && req.MediaBase64 == nil {
		return nil, fmt.Errorf("post needs content or media")
	}

	post := &model.Post{
		PostID:  uuid.NewString(),
		UserID:  author.UserID,
		Content: req.Content,
	}

	if req.MediaBase64 != nil && req.MediaType != nil {
		key, upErr := s.media.Upload(ctx, *req.MediaBase64, *req.MediaType)
		if upErr != nil {
			log.Printf("[Post] media upload failed: author=%s err=%v, posting without media", author.UserID, upErr)
		} else {
			post.MediaKey = &key
			post.MediaType = req.MediaType
		}
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	metrics.PostIngestionTotal.Inc()

	s.seedFeatures(ctx, post)

	content := ""
	if post.Content != nil {
		content = *post.Content
	}
	if _, err := s.publisher.PublishNewPost(ctx, queue.NewPostEvent{
		PostID:  post.PostID,
		UserID:  post.UserID,
		Content: content,
	}); err != nil {
		log.Printf("[Post] new-post publish failed: post=%s err=%v", post.PostID, err)
	}

	return s.toResponse(ctx, post, &author.Username, author.DisplayName), nil
}

// GetByID returns a hydrated post with a presigned media URL.
func (s *PostService) GetByID(ctx context.Context, postID string) (*model.PostResponse, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, post, post.AuthorUsername, post.AuthorDisplayName), nil
}

// Like records a like and refreshes the cached like_count so the
// fallback feature path sees it before the next store materialization.
func (s *PostService) Like(ctx context.Context, postID string, req model.LikeRequest) error {
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return err
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return err
	}

	added, err := s.posts.AddLike(ctx, req.UserID, postID)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		log.Printf("[Post] like-count refresh read failed: post=%s err=%v", postID, err)
		return nil
	}
	if err := s.cache.SetPostFeatures(ctx, postID, map[string]string{
		"like_count": strconv.Itoa(post.LikeCount),
	}); err != nil {
		log.Printf("[Post] like-count cache refresh failed: post=%s err=%v", postID, err)
	}
	return nil
}

// seedFeatures writes the post's initial feature row so the Redis
// fallback path can score it before the feature store catches up.
func (s *PostService) seedFeatures(ctx context.Context, post *model.Post) {
	hasMedia := "0"
	if post.MediaKey != nil {
		hasMedia = "1"
	}
	contentLength := 0
	if post.Content != nil {
		contentLength = len(*post.Content)
	}

	err := s.cache.SetPostFeatures(ctx, post.PostID, map[string]string{
		"author_id":      post.UserID,
		"like_count":     "0",
		"created_at_ts":  strconv.FormatInt(post.CreatedAt.Unix(), 10),
		"has_media":      hasMedia,
		"content_length": strconv.Itoa(contentLength),
	})
	if err != nil {
		log.Printf("[Post] feature seed failed: post=%s err=%v", post.PostID, err)
	}
}

func (s *PostService) toResponse(ctx context.Context, post *model.Post, username, displayName *string) *model.PostResponse {
	var mediaURL *string
	if post.MediaKey != nil {
		mediaURL = s.media.PresignGet(ctx, *post.MediaKey)
	}
	createdAt := post.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &model.PostResponse{
		PostID:      post.PostID,
		UserID:      post.UserID,
		Username:    username,
		DisplayName: displayName,
		Content:     post.Content,
		MediaURL:    mediaURL,
		MediaType:   post.MediaType,
		LikeCount:   post.LikeCount,
		CreatedAt:   createdAt,
	}
}
