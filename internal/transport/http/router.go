package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"socialfeed/internal/handler"
)

// NewRouter wires all HTTP routes.
func NewRouter(feed *handler.FeedHandler, posts *handler.PostHandler, users *handler.UserHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK")) //nolint:errcheck
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/feed", func(r chi.Router) {
		r.Get("/", feed.GetFeed)
		r.Post("/impressions", feed.RecordImpressions)
	})

	r.Route("/posts", func(r chi.Router) {
		r.Post("/", posts.Create)
		r.Get("/{postID}", posts.GetByID)
		r.Post("/{postID}/like", posts.Like)
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", users.Create)
		r.Get("/{userID}", users.GetByID)
		r.Get("/{userID}/followers", users.Followers)
		r.Post("/follow", users.Follow)
		r.Post("/unfollow", users.Unfollow)
	})

	return r
}
