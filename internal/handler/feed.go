package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"socialfeed/internal/httputil"
	"socialfeed/internal/model"
)

// FeedProvider is the slice of the feed service the HTTP layer needs.
type FeedProvider interface {
	GetFeed(ctx context.Context, userID string) (*model.FeedResponse, error)
	RecordImpressions(ctx context.Context, record model.ImpressionRecord) error
}

// FeedHandler exposes the serving pipeline over HTTP.
type FeedHandler struct {
	feed     FeedProvider
	deadline time.Duration
}

func NewFeedHandler(feed FeedProvider, deadline time.Duration) *FeedHandler {
	return &FeedHandler{feed: feed, deadline: deadline}
}

// GetFeed handles GET /feed/?user_id=<id>.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httputil.WriteBadRequest(w, "user_id query parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline)
	defer cancel()

	resp, err := h.feed.GetFeed(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		// Every soft dependency degrades inside the pipeline, so an
		// error here means a hard dependency (Postgres) is down.
		log.Printf("[Handler] feed request failed: user=%s err=%v", userID, err)
		httputil.WriteUnavailable(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// RecordImpressions handles POST /feed/impressions.
func (h *FeedHandler) RecordImpressions(w http.ResponseWriter, r *http.Request) {
	var record model.ImpressionRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		httputil.WriteBadRequest(w, "invalid JSON payload")
		return
	}
	if record.UserID == "" {
		httputil.WriteBadRequest(w, "user_id is required")
		return
	}

	if err := h.feed.RecordImpressions(r.Context(), record); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
