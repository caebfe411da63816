package service

import (
	"context"
	"log"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"socialfeed/internal/cache"
	"socialfeed/internal/model"
)

// interestVectorTTL bounds how long a bootstrapped vector survives
// before the next request re-synthesises (or a learned one replaces it).
const interestVectorTTL = 24 * time.Hour

// VectorSearcher is the discovery retrieval dependency (ANN search over
// post embeddings).
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int, excludeUserID string) ([]string, error)
}

// CandidateGenerator runs stage 1: parallel social + discovery
// retrieval merged into a deduplicated candidate list.
type CandidateGenerator struct {
	mailbox   cache.Mailbox
	features  cache.FeatureCache
	vectors   VectorSearcher
	limit     int // K: candidates per source
	dimension int
}

func NewCandidateGenerator(mailbox cache.Mailbox, features cache.FeatureCache, vectors VectorSearcher, limit, dimension int) *CandidateGenerator {
	return &CandidateGenerator{
		mailbox:   mailbox,
		features:  features,
		vectors:   vectors,
		limit:     limit,
		dimension: dimension,
	}
}

// Generate returns the merged candidate list plus per-source counts.
// Either retrieval branch may fail independently; a failed branch
// contributes an empty list and is recorded on the span, never failing
// the request.
func (g *CandidateGenerator) Generate(ctx context.Context, viewerID string) (candidates []model.Candidate, socialCount, discoveryCount int) {
	span := trace.SpanFromContext(ctx)

	vector := g.ensureInterestVector(ctx, viewerID)

	var socialIDs, discoveryIDs []string
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		ids, err := g.mailbox.Top(gctx, viewerID, g.limit)
		if err != nil {
			log.Printf("[Candidates] social retrieval failed: user=%s err=%v", viewerID, err)
			span.SetAttributes(attribute.String("retrieval.social_error", err.Error()))
			return nil
		}
		socialIDs = ids
		return nil
	})
	eg.Go(func() error {
		ids, err := g.vectors.Search(gctx, vector, g.limit, viewerID)
		if err != nil {
			log.Printf("[Candidates] discovery retrieval failed: user=%s err=%v", viewerID, err)
			span.SetAttributes(attribute.String("retrieval.discovery_error", err.Error()))
			return nil
		}
		discoveryIDs = ids
		return nil
	})
	eg.Wait() //nolint:errcheck // branches swallow their own errors

	return Merge(socialIDs, discoveryIDs), len(socialIDs), len(discoveryIDs)
}

// ensureInterestVector loads the viewer's interest vector, synthesising
// a uniform random one on cold start. The random bootstrap is
// deliberate: discovery must work before any interaction history
// exists, and blocking on a learned embedding would stall the request.
func (g *CandidateGenerator) ensureInterestVector(ctx context.Context, viewerID string) []float32 {
	vector, err := g.features.GetInterestVector(ctx, viewerID)
	if err != nil {
		log.Printf("[Candidates] interest vector read failed: user=%s err=%v", viewerID, err)
	}
	if vector != nil {
		return vector
	}

	vector = RandomInterestVector(g.dimension)
	if err := g.features.SetInterestVector(ctx, viewerID, vector, interestVectorTTL); err != nil {
		log.Printf("[Candidates] interest vector write failed: user=%s err=%v", viewerID, err)
	}
	return vector
}

// RandomInterestVector synthesises a uniform [-1,1]^dim vector.
func RandomInterestVector(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32(rand.Float64()*2 - 1)
	}
	return vec
}

// Merge deduplicates the two retrieval lists into candidates, keeping
// each post once with its first-seen source. Social is iterated first,
// so it wins on collision.
func Merge(socialIDs, discoveryIDs []string) []model.Candidate {
	seen := make(map[string]struct{}, len(socialIDs)+len(discoveryIDs))
	candidates := make([]model.Candidate, 0, len(socialIDs)+len(discoveryIDs))

	appendIDs := func(ids []string, source string) {
		for _, pid := range ids {
			if _, dup := seen[pid]; dup {
				continue
			}
			seen[pid] = struct{}{}
			candidates = append(candidates, model.Candidate{PostID: pid, Source: source})
		}
	}
	appendIDs(socialIDs, model.SourceSocial)
	appendIDs(discoveryIDs, model.SourceDiscovery)

	return candidates
}
