package model

import "time"

// Candidate sources. On a merge collision the first-seen source wins,
// and social lists are merged first.
const (
	SourceSocial    = "social"
	SourceDiscovery = "discovery"
)

// Candidate is a post eligible for ranking in a single request. It is
// created by candidate generation, filtered by impression discounting,
// hydrated with features in stage 3, and discarded at response end.
type Candidate struct {
	PostID    string
	Source    string
	Features  PostFeatures
	RankScore float64
}

// FeedPost is one ranked, hydrated entry in the feed response.
type FeedPost struct {
	PostID      string    `json:"post_id"`
	UserID      string    `json:"user_id"`
	Username    *string   `json:"username"`
	DisplayName *string   `json:"display_name"`
	Content     *string   `json:"content"`
	MediaURL    *string   `json:"media_url"`
	MediaType   *string   `json:"media_type"`
	LikeCount   int       `json:"like_count"`
	CreatedAt   time.Time `json:"created_at"`
	RankScore   float64   `json:"rank_score"`
	Source      string    `json:"source"`
}

// FeedResponse carries the page plus pipeline counters useful for
// understanding retrieval behavior.
type FeedResponse struct {
	UserID                string     `json:"user_id"`
	Posts                 []FeedPost `json:"posts"`
	CandidatesSocial      int        `json:"candidates_social"`
	CandidatesDiscovery   int        `json:"candidates_discovery"`
	CandidatesAfterFilter int        `json:"candidates_after_filter"`
	LatencyMS             float64    `json:"latency_ms"`
}

// ImpressionRecord is the POST /feed/impressions payload.
type ImpressionRecord struct {
	UserID  string   `json:"user_id"`
	PostIDs []string `json:"post_ids"`
}
