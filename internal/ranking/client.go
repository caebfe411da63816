package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"sort"
	"time"

	"socialfeed/internal/metrics"
	"socialfeed/internal/model"
)

// Client calls the ranking service for pClick scores. When the model is
// unreachable the heuristic fallback keeps the feed serving.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds the shared ranking client. The timeout is the model
// budget (2s by default).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type rankRequest struct {
	UserFeatures map[string]any  `json:"user_features"`
	Candidates   []rankCandidate `json:"candidates"`
}

type rankCandidate struct {
	PostID       string         `json:"post_id"`
	PostFeatures map[string]any `json:"post_features"`
}

type rankResponse struct {
	Scores []struct {
		PostID string  `json:"post_id"`
		Score  float64 `json:"score"`
	} `json:"scores"`
}

// ScoreCandidates sends the batch to POST /rank, attaches the returned
// score per candidate, and sorts descending. On any failure it applies
// the heuristic fallback instead, so the result is always fully scored.
func (c *Client) ScoreCandidates(ctx context.Context, userFeatures model.UserFeatures, candidates []model.Candidate) []model.Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	scoreMap, err := c.rank(ctx, userFeatures, candidates)
	if err != nil {
		log.Printf("[Ranking] service unavailable: %v, using heuristic fallback", err)
		metrics.RankingErrorsTotal.Inc()
		applyHeuristicScores(candidates)
	} else {
		for i := range candidates {
			candidates[i].RankScore = scoreMap[candidates[i].PostID]
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RankScore > candidates[j].RankScore
	})
	return candidates
}

func (c *Client) rank(ctx context.Context, userFeatures model.UserFeatures, candidates []model.Candidate) (map[string]float64, error) {
	req := rankRequest{
		UserFeatures: userFeatures.Wire(),
		Candidates:   make([]rankCandidate, len(candidates)),
	}
	for i, cand := range candidates {
		req.Candidates[i] = rankCandidate{
			PostID:       cand.PostID,
			PostFeatures: cand.Features.Wire(),
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rank", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ranking service returned %d", resp.StatusCode)
	}

	var data rankResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode rank response: %w", err)
	}

	scoreMap := make(map[string]float64, len(data.Scores))
	for _, s := range data.Scores {
		scoreMap[s.PostID] = s.Score
	}
	return scoreMap, nil
}

// applyHeuristicScores is the model-down fallback:
// score = 0.5 * exp(-age_hours/48) + 0.5 * like_count/max_likes.
func applyHeuristicScores(candidates []model.Candidate) {
	now := float64(time.Now().Unix())

	maxLikes := 1.0
	for _, c := range candidates {
		if c.Features.LikeCount > maxLikes {
			maxLikes = c.Features.LikeCount
		}
	}

	for i := range candidates {
		pf := candidates[i].Features
		createdAt := pf.CreatedAtTS
		if createdAt == 0 {
			createdAt = now
		}
		ageHours := (now - createdAt) / 3600
		recency := math.Exp(-ageHours / 48)
		candidates[i].RankScore = 0.5*recency + 0.5*pf.LikeCount/maxLikes
	}
}
