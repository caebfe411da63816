package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable for the feed pipeline and its collaborators.
// All values can be overridden via environment variables or a .env file.
type Config struct {
	ServerPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisURL string

	// Mailbox (Redis ZSET per user)
	FeedTTL     time.Duration // sliding TTL, refreshed on every write
	FeedMaxSize int           // M_max: entries per mailbox before eviction

	// Pipeline sizing
	RankingCandidateLimit int // K: candidates fetched per source
	FeedPageSize          int // posts returned per feed request
	MaxAuthorPosts        int // diversity cap per author
	MaxCandidates         int // cap before the ranking call

	// Fan-out worker
	FanOutFollowerCap  int // celebrity bypass threshold
	FanOutMaxInflight  int // bounded parallelism for mailbox pushes
	FanOutConsumerName string
	FanOutGroup        string
	WorkerMetricsPort  string

	// Discovery (vector index)
	QdrantURL          string
	QdrantCollection   string
	EmbeddingDimension int

	// Impression store
	PinotBrokerURL       string
	PinotImpressionTable string
	PinotLookbackHours   int

	// Feature store + ranking model
	FeastServerURL    string
	RankingServiceURL string

	// MinIO / S3 media storage
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	PresignExpiry  time.Duration

	// Feature cache TTLs
	UserFeatureTTL time.Duration
	PostFeatureTTL time.Duration

	// Per-dependency timeouts
	FeastTimeout    time.Duration
	RankingTimeout  time.Duration
	PinotTimeout    time.Duration
	DefaultTimeout  time.Duration
	RequestDeadline time.Duration
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	return &Config{
		ServerPort: getString("SERVER_PORT", "8080"),

		DBHost:     getString("DB_HOST", "localhost"),
		DBPort:     getString("DB_PORT", "5432"),
		DBUser:     getString("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getString("DB_NAME", "social_feed"),
		DBSSLMode:  getString("DB_SSLMODE", "disable"),

		RedisURL: getString("REDIS_URL", "redis://localhost:6379"),

		FeedTTL:     getSeconds("REDIS_FEED_TTL", 86400),
		FeedMaxSize: getInt("REDIS_FEED_MAX_SIZE", 500),

		RankingCandidateLimit: getInt("RANKING_CANDIDATE_LIMIT", 100),
		FeedPageSize:          getInt("FEED_PAGE_SIZE", 20),
		MaxAuthorPosts:        getInt("MAX_AUTHOR_POSTS", 2),
		MaxCandidates:         getInt("MAX_CANDIDATES", 150),

		FanOutFollowerCap:  getInt("FAN_OUT_FOLLOWER_CAP", 10000),
		FanOutMaxInflight:  getInt("FANOUT_MAX_INFLIGHT", 64),
		FanOutConsumerName: getString("FANOUT_CONSUMER_NAME", "fanout-1"),
		FanOutGroup:        getString("FANOUT_CONSUMER_GROUP", "fanout-workers"),
		WorkerMetricsPort:  getString("WORKER_METRICS_PORT", "9091"),

		QdrantURL:          getString("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getString("QDRANT_COLLECTION", "posts"),
		EmbeddingDimension: getInt("EMBEDDING_DIMENSION", 384),

		PinotBrokerURL:       getString("PINOT_BROKER_URL", "http://localhost:8099"),
		PinotImpressionTable: getString("PINOT_IMPRESSIONS_TABLE", "impressions"),
		PinotLookbackHours:   getInt("PINOT_LOOKBACK_HOURS", 24),

		FeastServerURL:    getString("FEAST_SERVER_URL", "http://localhost:6566"),
		RankingServiceURL: getString("RANKING_SERVICE_URL", "http://localhost:8001"),

		MinioEndpoint:  getString("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getString("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getString("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getString("MINIO_BUCKET", "media"),
		PresignExpiry:  getSeconds("PRESIGN_EXPIRY", 3600),

		UserFeatureTTL: getSeconds("USER_FEATURE_TTL", 3600),
		PostFeatureTTL: getSeconds("POST_FEATURE_TTL", 7200),

		FeastTimeout:    getMillis("FEAST_TIMEOUT_MS", 1500),
		RankingTimeout:  getMillis("RANKING_TIMEOUT_MS", 2000),
		PinotTimeout:    getMillis("PINOT_TIMEOUT_MS", 5000),
		DefaultTimeout:  getMillis("DEFAULT_TIMEOUT_MS", 10000),
		RequestDeadline: getMillis("REQUEST_DEADLINE_MS", 3000),
	}, nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getSeconds(key string, fallback int) time.Duration {
	return time.Duration(getInt(key, fallback)) * time.Second
}

func getMillis(key string, fallback int) time.Duration {
	return time.Duration(getInt(key, fallback)) * time.Millisecond
}
