package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialfeed/internal/cache"
	"socialfeed/internal/config"
	"socialfeed/internal/database"
	"socialfeed/internal/featurestore"
	"socialfeed/internal/handler"
	"socialfeed/internal/impressions"
	"socialfeed/internal/media"
	"socialfeed/internal/queue"
	"socialfeed/internal/ranking"
	appredis "socialfeed/internal/redis"
	"socialfeed/internal/repository"
	"socialfeed/internal/service"
	"socialfeed/internal/vectorindex"
)

const shutdownGrace = 10 * time.Second

// Run wires the whole API service together and serves until SIGINT or
// SIGTERM. Postgres and Redis are hard dependencies and fail startup;
// everything downstream (Qdrant, Pinot, Feast, ranking, MinIO) is
// reached lazily and degrades per request.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}

	redisClient, err := appredis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	mediaService, err := media.NewService(ctx, cfg)
	if err != nil {
		return err
	}

	vectors := vectorindex.NewClient(cfg.QdrantURL, cfg.QdrantCollection, cfg.EmbeddingDimension, cfg.DefaultTimeout)
	if err := vectors.EnsureCollection(ctx); err != nil {
		// Discovery degrades per request; don't block startup on it.
		log.Printf("[Server] vector collection bootstrap failed: %v", err)
	}

	mailbox := cache.NewMailbox(redisClient.Client, cfg.FeedMaxSize, cfg.FeedTTL)
	featureCache := cache.NewFeatureCache(redisClient.Client, cfg.UserFeatureTTL, cfg.PostFeatureTTL)
	publisher := queue.NewPublisher(redisClient.Client)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	followRepo := repository.NewFollowRepository(db)

	candidates := service.NewCandidateGenerator(mailbox, featureCache, vectors, cfg.RankingCandidateLimit, cfg.EmbeddingDimension)
	feedService := service.NewFeedService(
		userRepo,
		postRepo,
		candidates,
		impressions.NewClient(cfg.PinotBrokerURL, cfg.PinotImpressionTable, cfg.PinotLookbackHours, cfg.PinotTimeout),
		featurestore.NewClient(cfg.FeastServerURL, cfg.FeastTimeout),
		featureCache,
		ranking.NewClient(cfg.RankingServiceURL, cfg.RankingTimeout),
		mediaService,
		publisher,
		cfg,
	)
	postService := service.NewPostService(userRepo, postRepo, featureCache, mediaService, publisher)
	userService := service.NewUserService(userRepo, followRepo, featureCache, cfg.EmbeddingDimension)

	router := NewRouter(
		handler.NewFeedHandler(feedService, cfg.RequestDeadline),
		handler.NewPostHandler(postService),
		handler.NewUserHandler(userService),
	)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] listening on :%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("[Server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
