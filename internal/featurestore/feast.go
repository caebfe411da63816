package featurestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"socialfeed/internal/model"
)

// Feature column names follow the feature-store convention
// <feature_view>__<feature_name>. Columns outside these views are
// ignored during the pivot.
const (
	userPrefix     = "user_stats__"
	postPrefix     = "post_stats__"
	affinityPrefix = "user_author_affinity__"
)

// Client talks to the Feast feature server. Its single endpoint returns
// a column-oriented payload; this client pivots it once at the boundary
// so downstream code only ever sees typed per-post rows.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds the shared feature-store client. The timeout is the
// primary-path budget (1.5s by default); exceeding it triggers the
// Redis feature-cache fallback.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type onlineFeaturesRequest struct {
	FeatureService string              `json:"feature_service,omitempty"`
	Features       []string            `json:"features,omitempty"`
	Entities       map[string][]string `json:"entities"`
}

type onlineFeaturesResponse struct {
	Metadata struct {
		FeatureNames []string `json:"feature_names"`
	} `json:"metadata"`
	Results []struct {
		Values []any `json:"values"`
	} `json:"results"`
}

// RankingFeatures fetches user and post features for the ranking model
// in one batched call. The user's features are broadcast (identical per
// row); post features come back keyed by post ID with topic_similarity
// computed locally from the stored vectors.
//
// Any error propagates so the orchestrator can switch to the local
// feature cache.
func (c *Client) RankingFeatures(ctx context.Context, userID string, candidateIDs []string) (model.UserFeatures, map[string]model.PostFeatures, error) {
	if len(candidateIDs) == 0 {
		return model.UserFeatures{}, map[string]model.PostFeatures{}, nil
	}

	n := len(candidateIDs)
	userIDs := make([]string, n)
	for i := range userIDs {
		userIDs[i] = userID
	}

	resp, err := c.getOnlineFeatures(ctx, onlineFeaturesRequest{
		FeatureService: "ranking_features",
		Entities: map[string][]string{
			"user_id": userIDs,
			"post_id": candidateIDs,
		},
	})
	if err != nil {
		return model.UserFeatures{}, nil, err
	}

	rows := pivot(resp, n)
	if len(rows) == 0 {
		return model.UserFeatures{}, nil, fmt.Errorf("feature response had no rows")
	}

	userRaw := make(map[string]any)
	for name, v := range rows[0] {
		if key, ok := stripPrefix(name, userPrefix); ok {
			userRaw[key] = v
		}
	}
	userFeatures := model.UserFeaturesFromWire(userRaw)
	interest := userFeatures.InterestVector()

	postFeatures := make(map[string]model.PostFeatures, n)
	for i, pid := range candidateIDs {
		postRaw := make(map[string]any)
		for name, v := range rows[i] {
			if key, ok := stripPrefix(name, postPrefix); ok {
				postRaw[key] = v
			}
		}
		pf := model.PostFeaturesFromWire(postRaw)
		pf.TopicSimilarity = topicSimilarity(interest, pf.Embedding())
		postFeatures[pid] = pf
	}

	return userFeatures, postFeatures, nil
}

// AffinityScores fetches user→author affinity for a set of authors.
// This is an independent best-effort call: on any failure it returns an
// empty map and the pipeline attaches 0.0 affinity everywhere.
func (c *Client) AffinityScores(ctx context.Context, userID string, authorIDs []string) map[string]float64 {
	affinity := make(map[string]float64)
	if len(authorIDs) == 0 {
		return affinity
	}

	unique := dedupe(authorIDs)
	userIDs := make([]string, len(unique))
	for i := range userIDs {
		userIDs[i] = userID
	}

	resp, err := c.getOnlineFeatures(ctx, onlineFeaturesRequest{
		Features: []string{"user_author_affinity:affinity_score"},
		Entities: map[string][]string{
			"user_id":   userIDs,
			"author_id": unique,
		},
	})
	if err != nil {
		log.Printf("[FeatureStore] affinity fetch failed: %v", err)
		return affinity
	}

	rows := pivot(resp, len(unique))
	for i, aid := range unique {
		v, ok := rows[i][affinityPrefix+"affinity_score"]
		if !ok {
			v = rows[i]["affinity_score"]
		}
		if f, isNum := toFloat(v); isNum {
			affinity[aid] = f
		}
	}
	return affinity
}

func (c *Client) getOnlineFeatures(ctx context.Context, reqBody onlineFeaturesRequest) (*onlineFeaturesResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/get-online-features", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feature server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feature server returned %d", resp.StatusCode)
	}

	var data onlineFeaturesResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode feature response: %w", err)
	}
	return &data, nil
}

// pivot converts the column-oriented response into row maps:
// results[i].values[j] is the value of feature_names[i] for entity row j.
func pivot(resp *onlineFeaturesResponse, nRows int) []map[string]any {
	rows := make([]map[string]any, nRows)
	for i := range rows {
		rows[i] = make(map[string]any)
	}
	for col, name := range resp.Metadata.FeatureNames {
		if col >= len(resp.Results) {
			break
		}
		values := resp.Results[col].Values
		for row := 0; row < nRows && row < len(values); row++ {
			rows[row][name] = values[row]
		}
	}
	return rows
}

func stripPrefix(name, prefix string) (string, bool) {
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):], true
	}
	return "", false
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
