package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"socialfeed/internal/cache"
	"socialfeed/internal/config"
	"socialfeed/internal/metrics"
	"socialfeed/internal/model"
	"socialfeed/internal/queue"
	"socialfeed/internal/repository"
	"socialfeed/internal/telemetry"
)

// impressionPublishTimeout is the hard deadline for the detached
// impression write after the response has been committed.
const impressionPublishTimeout = 5 * time.Second

// ImpressionSource answers "which posts has this viewer already seen".
// Implementations degrade to an empty set instead of failing.
type ImpressionSource interface {
	SeenPostIDs(ctx context.Context, userID string) map[string]struct{}
}

// FeatureSource is the primary feature backend for stage 3.
type FeatureSource interface {
	RankingFeatures(ctx context.Context, userID string, candidateIDs []string) (model.UserFeatures, map[string]model.PostFeatures, error)
	AffinityScores(ctx context.Context, userID string, authorIDs []string) map[string]float64
}

// Ranker scores a candidate batch. Implementations always return a
// fully scored, descending-sorted list.
type Ranker interface {
	ScoreCandidates(ctx context.Context, userFeatures model.UserFeatures, candidates []model.Candidate) []model.Candidate
}

// MediaStore stores uploads and signs read URLs.
type MediaStore interface {
	Upload(ctx context.Context, mediaBase64, mediaType string) (string, error)
	PresignGet(ctx context.Context, mediaKey string) *string
}

// FeedService runs the read-time serving pipeline: candidate
// generation, impression discounting, feature hydration, scoring, and
// re-ranking into a page. Every stage degrades independently; only a
// missing viewer or a broken relational store fails the request.
type FeedService struct {
	users       repository.UserRepository
	posts       repository.PostRepository
	candidates  *CandidateGenerator
	impressions ImpressionSource
	features    FeatureSource
	cache       cache.FeatureCache
	ranker      Ranker
	media       MediaStore
	publisher   queue.Publisher
	cfg         *config.Config
}

func NewFeedService(
	users repository.UserRepository,
	posts repository.PostRepository,
	candidates *CandidateGenerator,
	impressions ImpressionSource,
	features FeatureSource,
	featureCache cache.FeatureCache,
	ranker Ranker,
	media MediaStore,
	publisher queue.Publisher,
	cfg *config.Config,
) *FeedService {
	return &FeedService{
		users:       users,
		posts:       posts,
		candidates:  candidates,
		impressions: impressions,
		features:    features,
		cache:       featureCache,
		ranker:      ranker,
		media:       media,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// GetFeed serves one personalized page for the viewer.
func (s *FeedService) GetFeed(ctx context.Context, userID string) (*model.FeedResponse, error) {
	start := time.Now()

	ctx, span := telemetry.Tracer().Start(ctx, "feed.get")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	// Stage 1: candidate generation.
	candidates, socialCount, discoveryCount := s.candidates.Generate(ctx, userID)
	metrics.FeedCandidatesTotal.WithLabelValues(model.SourceSocial).Add(float64(socialCount))
	metrics.FeedCandidatesTotal.WithLabelValues(model.SourceDiscovery).Add(float64(discoveryCount))
	span.SetAttributes(
		attribute.Int("candidates.social", socialCount),
		attribute.Int("candidates.discovery", discoveryCount),
	)

	// Stage 2: impression discounting.
	candidates = s.filterSeen(ctx, userID, candidates, span.SetAttributes)
	afterFilter := len(candidates)
	span.SetAttributes(attribute.Int("candidates.after_filter", afterFilter))

	if len(candidates) > s.cfg.MaxCandidates {
		candidates = candidates[:s.cfg.MaxCandidates]
	}

	// Stage 3: feature hydration.
	userFeatures, candidates := s.hydrate(ctx, userID, candidates, span.SetAttributes)

	// Stage 4: scoring + re-rank.
	ranked := s.ranker.ScoreCandidates(ctx, userFeatures, candidates)
	posts, err := s.assemblePage(ctx, ranked)
	if err != nil {
		return nil, err
	}

	// Stage 5: record what was served, off the request path.
	served := make([]string, len(posts))
	for i, p := range posts {
		served[i] = p.PostID
	}
	s.publishImpressionsAsync(ctx, userID, served)

	latency := time.Since(start)
	metrics.FeedLatency.Observe(latency.Seconds())
	span.SetAttributes(attribute.Float64("feed.latency_ms", float64(latency.Milliseconds())))

	return &model.FeedResponse{
		UserID:                userID,
		Posts:                 posts,
		CandidatesSocial:      socialCount,
		CandidatesDiscovery:   discoveryCount,
		CandidatesAfterFilter: afterFilter,
		LatencyMS:             float64(latency.Microseconds()) / 1000,
	}, nil
}

// filterSeen drops candidates the viewer saw inside the lookback
// window. The seen-set lookup never errors; a backend failure shows up
// as an empty set.
func (s *FeedService) filterSeen(ctx context.Context, userID string, candidates []model.Candidate, setAttrs func(...attribute.KeyValue)) []model.Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	seen := s.impressions.SeenPostIDs(ctx, userID)
	if len(seen) == 0 {
		metrics.RetrievalRecall.Set(1)
		setAttrs(attribute.Float64("impression.recall_ratio", 1))
		return candidates
	}

	kept := candidates[:0]
	for _, c := range candidates {
		if _, wasSeen := seen[c.PostID]; wasSeen {
			continue
		}
		kept = append(kept, c)
	}

	recall := float64(len(kept)) / float64(len(candidates))
	metrics.RetrievalRecall.Set(recall)
	setAttrs(attribute.Float64("impression.recall_ratio", recall))
	return kept
}

// hydrate attaches features to every candidate: Feast primary, Redis
// feature cache fallback. Affinity is fetched best-effort on the
// primary path only; candidates without an affinity row keep 0.0.
func (s *FeedService) hydrate(ctx context.Context, userID string, candidates []model.Candidate, setAttrs func(...attribute.KeyValue)) (model.UserFeatures, []model.Candidate) {
	if len(candidates) == 0 {
		return model.UserFeatures{}, candidates
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.PostID
	}

	userFeatures, postFeatures, err := s.features.RankingFeatures(ctx, userID, ids)
	if err == nil {
		setAttrs(attribute.String("stage3.feature_source", "feast"))

		authorIDs := make([]string, 0, len(postFeatures))
		for _, pf := range postFeatures {
			if pf.AuthorID != "" {
				authorIDs = append(authorIDs, pf.AuthorID)
			}
		}
		affinity := s.features.AffinityScores(ctx, userID, authorIDs)

		for i := range candidates {
			pf := postFeatures[candidates[i].PostID]
			pf.AffinityScore = affinity[pf.AuthorID]
			candidates[i].Features = pf
		}
		return userFeatures, candidates
	}

	log.Printf("[Feed] feature store unavailable: user=%s err=%v, using feature cache", userID, err)
	metrics.FeatureFallbackTotal.Inc()
	setAttrs(attribute.String("stage3.feature_source", "redis-fallback"))

	userFeatures, cacheErr := s.cache.GetUserFeatures(ctx, userID)
	if cacheErr != nil {
		log.Printf("[Feed] user feature cache read failed: user=%s err=%v", userID, cacheErr)
		userFeatures = model.UserFeatures{}
	}
	cached, cacheErr := s.cache.GetPostFeatures(ctx, ids)
	if cacheErr != nil {
		log.Printf("[Feed] post feature cache read failed: user=%s err=%v", userID, cacheErr)
		cached = map[string]model.PostFeatures{}
	}
	for i := range candidates {
		candidates[i].Features = cached[candidates[i].PostID]
	}
	return userFeatures, candidates
}

// assemblePage hydrates the top of the ranked list from Postgres and
// walks it in score order, applying the per-author diversity cap until
// the page is full. Candidates whose posts were deleted are skipped,
// but a relational failure fails the request; unlike the sidecar
// stores, Postgres is not optional.
func (s *FeedService) assemblePage(ctx context.Context, ranked []model.Candidate) ([]model.FeedPost, error) {
	pageSize := s.cfg.FeedPageSize
	window := 3 * pageSize
	if len(ranked) > window {
		ranked = ranked[:window]
	}
	if len(ranked) == 0 {
		return []model.FeedPost{}, nil
	}

	ids := make([]string, len(ranked))
	for i, c := range ranked {
		ids[i] = c.PostID
	}
	rows, err := s.posts.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate page: %w", err)
	}
	byID := make(map[string]model.Post, len(rows))
	for _, p := range rows {
		byID[p.PostID] = p
	}

	page := make([]model.FeedPost, 0, pageSize)
	perAuthor := make(map[string]int)
	for _, c := range ranked {
		post, ok := byID[c.PostID]
		if !ok {
			continue
		}
		if perAuthor[post.UserID] >= s.cfg.MaxAuthorPosts {
			continue
		}

		var mediaURL *string
		if post.MediaKey != nil {
			mediaURL = s.media.PresignGet(ctx, *post.MediaKey)
		}
		page = append(page, model.FeedPost{
			PostID:      post.PostID,
			UserID:      post.UserID,
			Username:    post.AuthorUsername,
			DisplayName: post.AuthorDisplayName,
			Content:     post.Content,
			MediaURL:    mediaURL,
			MediaType:   post.MediaType,
			LikeCount:   post.LikeCount,
			CreatedAt:   post.CreatedAt,
			RankScore:   c.RankScore,
			Source:      c.Source,
		})

		perAuthor[post.UserID]++
		if len(page) == pageSize {
			break
		}
	}
	return page, nil
}

// RecordImpressions handles client-reported impressions (scroll
// tracking). The write happens off the request path, same as the
// served-page emission.
func (s *FeedService) RecordImpressions(ctx context.Context, record model.ImpressionRecord) error {
	if record.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	s.publishImpressionsAsync(ctx, record.UserID, record.PostIDs)
	return nil
}

// publishImpressionsAsync emits impression events after the response is
// committed. The goroutine carries a detached context so neither the
// request cancellation nor a slow Redis can touch serving latency; a
// lost batch only means the viewer may see a post twice.
func (s *FeedService) publishImpressionsAsync(ctx context.Context, userID string, postIDs []string) {
	if len(postIDs) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		pubCtx, cancel := context.WithTimeout(detached, impressionPublishTimeout)
		defer cancel()

		if err := s.publisher.PublishImpressions(pubCtx, userID, postIDs); err != nil {
			log.Printf("[Feed] impression publish failed: user=%s count=%d err=%v", userID, len(postIDs), err)
		}
	}()
}
