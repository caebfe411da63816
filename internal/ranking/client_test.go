package ranking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialfeed/internal/model"
)

func TestScoreCandidatesFromModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rank", r.URL.Path)

		var req rankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Candidates, 3)

		json.NewEncoder(w).Encode(map[string]any{
			"scores": []map[string]any{
				{"post_id": "p1", "score": 0.2},
				{"post_id": "p2", "score": 0.9},
				{"post_id": "p3", "score": 0.5},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	ranked := c.ScoreCandidates(context.Background(), model.UserFeatures{}, []model.Candidate{
		{PostID: "p1"}, {PostID: "p2"}, {PostID: "p3"},
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, "p2", ranked[0].PostID)
	assert.Equal(t, "p3", ranked[1].PostID)
	assert.Equal(t, "p1", ranked[2].PostID)
	assert.Equal(t, 0.9, ranked[0].RankScore)
}

func TestScoreCandidatesHeuristicFallback(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 100*time.Millisecond)
	now := float64(time.Now().Unix())

	ranked := c.ScoreCandidates(context.Background(), model.UserFeatures{}, []model.Candidate{
		{PostID: "old-popular", Features: model.PostFeatures{CreatedAtTS: now - 7*24*3600, LikeCount: 100}},
		{PostID: "fresh-quiet", Features: model.PostFeatures{CreatedAtTS: now, LikeCount: 0}},
		{PostID: "fresh-popular", Features: model.PostFeatures{CreatedAtTS: now, LikeCount: 100}},
	})

	require.Len(t, ranked, 3)
	// Fresh and popular dominates. The week-old popular post keeps its
	// full like term (~0.515) and edges out the fresh-but-quiet one (0.5).
	assert.Equal(t, "fresh-popular", ranked[0].PostID)
	assert.Equal(t, "old-popular", ranked[1].PostID)
	assert.Equal(t, "fresh-quiet", ranked[2].PostID)

	for _, c := range ranked {
		assert.Greater(t, c.RankScore, 0.0)
		assert.LessOrEqual(t, c.RankScore, 1.0)
	}
}

func TestScoreCandidatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	ranked := c.ScoreCandidates(context.Background(), model.UserFeatures{}, []model.Candidate{
		{PostID: "p1", Features: model.PostFeatures{LikeCount: 1}},
	})

	// Fallback still yields a scored, usable list.
	require.Len(t, ranked, 1)
	assert.Greater(t, ranked[0].RankScore, 0.0)
}

func TestScoreCandidatesEmpty(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	assert.Empty(t, c.ScoreCandidates(context.Background(), model.UserFeatures{}, nil))
}

func TestHeuristicMissingTimestampTreatedAsNow(t *testing.T) {
	candidates := []model.Candidate{
		{PostID: "no-ts", Features: model.PostFeatures{LikeCount: 10}},
	}
	applyHeuristicScores(candidates)

	// Full recency term plus full like term.
	assert.InDelta(t, 1.0, candidates[0].RankScore, 1e-9)
}
