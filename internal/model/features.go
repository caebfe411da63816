package model

import (
	"encoding/json"
	"strconv"
)

// The feature store passes features as untyped columns. We coerce them at
// the boundary into these records; model-only signals that the pipeline
// never inspects ride along in the Extras bag.

// UserFeatures are per-viewer ranking signals, identical for every
// candidate in a request.
type UserFeatures struct {
	FollowerCount      float64 `json:"follower_count"`
	FollowingCount     float64 `json:"following_count"`
	TotalPosts         float64 `json:"total_posts"`
	AvgEngagementRate  float64 `json:"avg_engagement_rate"`
	InterestVectorJSON string  `json:"interest_vector_json,omitempty"`

	Extras map[string]float64 `json:"-"`
}

// PostFeatures are per-candidate ranking signals plus the cross-features
// attached during stage 3 (affinity_score, topic_similarity).
type PostFeatures struct {
	AuthorID            string  `json:"author_id"`
	LikeCount           float64 `json:"like_count"`
	CreatedAtTS         float64 `json:"created_at_ts"`
	HasMedia            float64 `json:"has_media"`
	ContentLength       float64 `json:"content_length"`
	AuthorFollowerCount float64 `json:"author_follower_count"`
	EmbeddingJSON       string  `json:"embedding_json,omitempty"`

	TopicSimilarity float64 `json:"topic_similarity"`
	AffinityScore   float64 `json:"affinity_score"`

	Extras map[string]float64 `json:"-"`
}

// UserFeaturesFromWire coerces a raw feature map (JSON values or Redis
// hash strings) into the typed record.
func UserFeaturesFromWire(raw map[string]any) UserFeatures {
	uf := UserFeatures{}
	for name, v := range raw {
		switch name {
		case "follower_count":
			uf.FollowerCount = toFloat(v)
		case "following_count":
			uf.FollowingCount = toFloat(v)
		case "total_posts":
			uf.TotalPosts = toFloat(v)
		case "avg_engagement_rate":
			uf.AvgEngagementRate = toFloat(v)
		case "interest_vector_json":
			uf.InterestVectorJSON = toString(v)
		default:
			if f, ok := tryFloat(v); ok {
				if uf.Extras == nil {
					uf.Extras = make(map[string]float64)
				}
				uf.Extras[name] = f
			}
		}
	}
	return uf
}

// PostFeaturesFromWire coerces a raw feature map into the typed record.
func PostFeaturesFromWire(raw map[string]any) PostFeatures {
	pf := PostFeatures{}
	for name, v := range raw {
		switch name {
		case "author_id":
			pf.AuthorID = toString(v)
		case "like_count":
			pf.LikeCount = toFloat(v)
		case "created_at_ts":
			pf.CreatedAtTS = toFloat(v)
		case "has_media":
			pf.HasMedia = toFloat(v)
		case "content_length":
			pf.ContentLength = toFloat(v)
		case "author_follower_count":
			pf.AuthorFollowerCount = toFloat(v)
		case "embedding_json":
			pf.EmbeddingJSON = toString(v)
		case "topic_similarity":
			pf.TopicSimilarity = toFloat(v)
		case "affinity_score":
			pf.AffinityScore = toFloat(v)
		default:
			if f, ok := tryFloat(v); ok {
				if pf.Extras == nil {
					pf.Extras = make(map[string]float64)
				}
				pf.Extras[name] = f
			}
		}
	}
	return pf
}

// Wire flattens the record back into the map shape the ranking service
// expects. Extras are merged in without overriding named fields.
func (uf UserFeatures) Wire() map[string]any {
	m := map[string]any{
		"follower_count":      uf.FollowerCount,
		"following_count":     uf.FollowingCount,
		"total_posts":         uf.TotalPosts,
		"avg_engagement_rate": uf.AvgEngagementRate,
	}
	if uf.InterestVectorJSON != "" {
		m["interest_vector_json"] = uf.InterestVectorJSON
	}
	for k, v := range uf.Extras {
		if _, exists := m[k]; !exists {
			m[k] = v
		}
	}
	return m
}

func (pf PostFeatures) Wire() map[string]any {
	m := map[string]any{
		"author_id":             pf.AuthorID,
		"like_count":            pf.LikeCount,
		"created_at_ts":         pf.CreatedAtTS,
		"has_media":             pf.HasMedia,
		"content_length":        pf.ContentLength,
		"author_follower_count": pf.AuthorFollowerCount,
		"topic_similarity":      pf.TopicSimilarity,
		"affinity_score":        pf.AffinityScore,
	}
	for k, v := range pf.Extras {
		if _, exists := m[k]; !exists {
			m[k] = v
		}
	}
	return m
}

// InterestVector decodes the JSON-encoded vector; nil on absence or
// parse failure, matching the "empty vector" degradation.
func (uf UserFeatures) InterestVector() []float32 {
	return DecodeVector(uf.InterestVectorJSON)
}

// Embedding decodes the post's JSON-encoded embedding.
func (pf PostFeatures) Embedding() []float32 {
	return DecodeVector(pf.EmbeddingJSON)
}

// DecodeVector parses a JSON float list; returns nil on any failure.
func DecodeVector(raw string) []float32 {
	if raw == "" {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil
	}
	return vec
}

func toFloat(v any) float64 {
	f, _ := tryFloat(v)
	return f
}

func tryFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
