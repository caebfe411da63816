package service

import (
	"context"
	"time"

	"socialfeed/internal/model"
	"socialfeed/internal/queue"
)

// Function-field fakes for the pipeline's collaborators. Unset fields
// behave as benign no-ops so each test only wires what it exercises.

type mockUserRepo struct {
	GetByIDFunc func(ctx context.Context, id string) (*model.User, error)
	CreateFunc  func(ctx context.Context, user *model.User) error
	ExistsFunc  func(ctx context.Context, username string) (bool, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &model.User{UserID: id, Username: "someone"}, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	user.CreatedAt = time.Now()
	return nil
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, username)
	}
	return false, nil
}

type mockPostRepo struct {
	CreateFunc   func(ctx context.Context, post *model.Post) error
	GetByIDFunc  func(ctx context.Context, id string) (*model.Post, error)
	GetByIDsFunc func(ctx context.Context, ids []string) ([]model.Post, error)
	AddLikeFunc  func(ctx context.Context, userID, postID string) (bool, error)
}

func (m *mockPostRepo) Create(ctx context.Context, post *model.Post) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, post)
	}
	post.CreatedAt = time.Now()
	return nil
}

func (m *mockPostRepo) GetByID(ctx context.Context, id string) (*model.Post, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &model.Post{PostID: id}, nil
}

func (m *mockPostRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Post, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ids)
	}
	posts := make([]model.Post, len(ids))
	for i, id := range ids {
		posts[i] = model.Post{PostID: id, UserID: "author-" + id}
	}
	return posts, nil
}

func (m *mockPostRepo) AddLike(ctx context.Context, userID, postID string) (bool, error) {
	if m.AddLikeFunc != nil {
		return m.AddLikeFunc(ctx, userID, postID)
	}
	return true, nil
}

type mockFollowRepo struct {
	CreateCalls   [][2]string
	DeleteCalls   [][2]string
	FollowersFunc func(ctx context.Context, userID string, limit int) ([]model.User, error)
}

func (m *mockFollowRepo) Create(ctx context.Context, followerID, followeeID string) (bool, error) {
	m.CreateCalls = append(m.CreateCalls, [2]string{followerID, followeeID})
	return true, nil
}

func (m *mockFollowRepo) Delete(ctx context.Context, followerID, followeeID string) error {
	m.DeleteCalls = append(m.DeleteCalls, [2]string{followerID, followeeID})
	return nil
}

func (m *mockFollowRepo) FollowerIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	return nil, nil
}

func (m *mockFollowRepo) Followers(ctx context.Context, userID string, limit int) ([]model.User, error) {
	if m.FollowersFunc != nil {
		return m.FollowersFunc(ctx, userID, limit)
	}
	return nil, nil
}

type mockMailbox struct {
	TopFunc  func(ctx context.Context, userID string, n int) ([]string, error)
	PushFunc func(ctx context.Context, userID, postID string, score float64) error
}

func (m *mockMailbox) Push(ctx context.Context, userID, postID string, score float64) error {
	if m.PushFunc != nil {
		return m.PushFunc(ctx, userID, postID, score)
	}
	return nil
}

func (m *mockMailbox) Top(ctx context.Context, userID string, n int) ([]string, error) {
	if m.TopFunc != nil {
		return m.TopFunc(ctx, userID, n)
	}
	return nil, nil
}

func (m *mockMailbox) Remove(ctx context.Context, userID, postID string) error { return nil }
func (m *mockMailbox) Size(ctx context.Context, userID string) (int64, error)  { return 0, nil }

type mockFeatureCache struct {
	GetUserFunc   func(ctx context.Context, userID string) (model.UserFeatures, error)
	GetPostsFunc  func(ctx context.Context, postIDs []string) (map[string]model.PostFeatures, error)
	GetVectorFunc func(ctx context.Context, userID string) ([]float32, error)
	SetVectorFunc func(ctx context.Context, userID string, vec []float32, ttl time.Duration) error
	SetUserCalls  []string
	SetPostCalls  []string
}

func (m *mockFeatureCache) GetUserFeatures(ctx context.Context, userID string) (model.UserFeatures, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, userID)
	}
	return model.UserFeatures{}, nil
}

func (m *mockFeatureCache) SetUserFeatures(ctx context.Context, userID string, features map[string]float64) error {
	m.SetUserCalls = append(m.SetUserCalls, userID)
	return nil
}

func (m *mockFeatureCache) GetPostFeatures(ctx context.Context, postIDs []string) (map[string]model.PostFeatures, error) {
	if m.GetPostsFunc != nil {
		return m.GetPostsFunc(ctx, postIDs)
	}
	return map[string]model.PostFeatures{}, nil
}

func (m *mockFeatureCache) SetPostFeatures(ctx context.Context, postID string, features map[string]string) error {
	m.SetPostCalls = append(m.SetPostCalls, postID)
	return nil
}

func (m *mockFeatureCache) GetInterestVector(ctx context.Context, userID string) ([]float32, error) {
	if m.GetVectorFunc != nil {
		return m.GetVectorFunc(ctx, userID)
	}
	return []float32{1, 0}, nil
}

func (m *mockFeatureCache) SetInterestVector(ctx context.Context, userID string, vec []float32, ttl time.Duration) error {
	if m.SetVectorFunc != nil {
		return m.SetVectorFunc(ctx, userID, vec, ttl)
	}
	return nil
}

type mockVectorSearcher struct {
	SearchFunc func(ctx context.Context, vector []float32, limit int, excludeUserID string) ([]string, error)
}

func (m *mockVectorSearcher) Search(ctx context.Context, vector []float32, limit int, excludeUserID string) ([]string, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, vector, limit, excludeUserID)
	}
	return nil, nil
}

type mockImpressionSource struct {
	SeenFunc func(ctx context.Context, userID string) map[string]struct{}
}

func (m *mockImpressionSource) SeenPostIDs(ctx context.Context, userID string) map[string]struct{} {
	if m.SeenFunc != nil {
		return m.SeenFunc(ctx, userID)
	}
	return map[string]struct{}{}
}

type mockFeatureSource struct {
	RankingFunc  func(ctx context.Context, userID string, candidateIDs []string) (model.UserFeatures, map[string]model.PostFeatures, error)
	AffinityFunc func(ctx context.Context, userID string, authorIDs []string) map[string]float64
}

func (m *mockFeatureSource) RankingFeatures(ctx context.Context, userID string, candidateIDs []string) (model.UserFeatures, map[string]model.PostFeatures, error) {
	if m.RankingFunc != nil {
		return m.RankingFunc(ctx, userID, candidateIDs)
	}
	return model.UserFeatures{}, map[string]model.PostFeatures{}, nil
}

func (m *mockFeatureSource) AffinityScores(ctx context.Context, userID string, authorIDs []string) map[string]float64 {
	if m.AffinityFunc != nil {
		return m.AffinityFunc(ctx, userID, authorIDs)
	}
	return map[string]float64{}
}

// mockRanker scores candidates by position in a fixed order; unknown
// posts sink to the bottom.
type mockRanker struct {
	Order []string
}

func (m *mockRanker) ScoreCandidates(ctx context.Context, userFeatures model.UserFeatures, candidates []model.Candidate) []model.Candidate {
	rank := make(map[string]int, len(m.Order))
	for i, id := range m.Order {
		rank[id] = len(m.Order) - i
	}
	for i := range candidates {
		candidates[i].RankScore = float64(rank[candidates[i].PostID])
	}
	sorted := make([]model.Candidate, len(candidates))
	copy(sorted, candidates)
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].RankScore > sorted[i].RankScore {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	return sorted
}

type mockMediaStore struct {
	UploadFunc  func(ctx context.Context, mediaBase64, mediaType string) (string, error)
	PresignFunc func(ctx context.Context, mediaKey string) *string
}

func (m *mockMediaStore) Upload(ctx context.Context, mediaBase64, mediaType string) (string, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, mediaBase64, mediaType)
	}
	return "image/fake.jpg", nil
}

func (m *mockMediaStore) PresignGet(ctx context.Context, mediaKey string) *string {
	if m.PresignFunc != nil {
		return m.PresignFunc(ctx, mediaKey)
	}
	url := "http://minio/" + mediaKey
	return &url
}

type mockPublisher struct {
	NewPostFunc     func(ctx context.Context, event queue.NewPostEvent) (string, error)
	ImpressionsFunc func(ctx context.Context, userID string, postIDs []string) error
}

func (m *mockPublisher) PublishNewPost(ctx context.Context, event queue.NewPostEvent) (string, error) {
	if m.NewPostFunc != nil {
		return m.NewPostFunc(ctx, event)
	}
	return "1-0", nil
}

func (m *mockPublisher) PublishImpressions(ctx context.Context, userID string, postIDs []string) error {
	if m.ImpressionsFunc != nil {
		return m.ImpressionsFunc(ctx, userID, postIDs)
	}
	return nil
}
