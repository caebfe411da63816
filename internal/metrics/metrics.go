package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics. Names mirror the serving pipeline's dashboards:
// latency per request, retrieval recall after impression discounting,
// candidate volume per source, and fallback/error counters.
var (
	FeedLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_latency_seconds",
		Help:    "End-to-end feed request latency",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	RetrievalRecall = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retrieval_recall_ratio",
		Help: "Fraction of candidates surviving impression discounting",
	})

	FeedCandidatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_candidates_total",
		Help: "Candidates retrieved, by source",
	}, []string{"source"})

	PostIngestionTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "post_ingestion_total",
		Help: "Posts accepted by the ingestion path",
	})

	RankingErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ranking_errors_total",
		Help: "Ranking-service failures that fell back to the heuristic",
	})

	FeatureFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feature_store_fallback_total",
		Help: "Feature-store failures that fell back to the Redis cache",
	})

	ImpressionFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "impression_store_fallback_total",
		Help: "Impression-store failures degraded to an empty seen-set",
	})

	FanoutEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_events_total",
		Help: "Fan-out worker outcomes per new-post event",
	}, []string{"outcome"}) // delivered | no_followers | celebrity_bypass | error

	FanoutMailboxWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanout_mailbox_writes_total",
		Help: "Individual mailbox pushes performed by the fan-out worker",
	})
)
