package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"socialfeed/internal/cache"
	"socialfeed/internal/config"
	"socialfeed/internal/database"
	"socialfeed/internal/queue"
	appredis "socialfeed/internal/redis"
	"socialfeed/internal/repository"
	"socialfeed/internal/worker"
)

// The fan-out worker consumes the new-posts stream and writes follower
// mailboxes. It runs separately from the API service so ingestion
// bursts never steal serving capacity.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	redisClient, err := appredis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer redisClient.Close()

	mailbox := cache.NewMailbox(redisClient.Client, cfg.FeedMaxSize, cfg.FeedTTL)
	follows := repository.NewFollowRepository(db)
	handler := worker.NewHandler(follows, mailbox, cfg.FanOutFollowerCap, cfg.FanOutMaxInflight)
	manager := worker.NewManager(queue.NewConsumer(redisClient.Client), handler, cfg.FanOutGroup, cfg.FanOutConsumerName)

	// Metrics-only listener; the worker has no API surface.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := ":" + cfg.WorkerMetricsPort
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics listener failed: %v", err)
		}
	}()

	if err := manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("worker exited: %v", err)
	}
}
