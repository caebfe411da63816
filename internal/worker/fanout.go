package worker

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"socialfeed/internal/cache"
	"socialfeed/internal/metrics"
	"socialfeed/internal/queue"
)

// FollowerSource provides the author's follower list for fan-out.
type FollowerSource interface {
	FollowerIDs(ctx context.Context, userID string, limit int) ([]string, error)
}

// Handler expands one new-post event into follower mailbox writes.
type Handler struct {
	followers   FollowerSource
	mailbox     cache.Mailbox
	followerCap int // celebrity bypass threshold
	maxInflight int // bounded parallelism for mailbox pushes
}

func NewHandler(followers FollowerSource, mailbox cache.Mailbox, followerCap, maxInflight int) *Handler {
	return &Handler{
		followers:   followers,
		mailbox:     mailbox,
		followerCap: followerCap,
		maxInflight: maxInflight,
	}
}

// HandleNewPost pushes the post into every follower's mailbox. A
// returned error means the event must NOT be acknowledged: redelivery
// retries the whole fan-out, and mailbox pushes are upserts so the
// followers that already got it just get rescored.
//
// Authors at or above the follower cap are skipped entirely; their
// posts reach feeds through discovery retrieval instead of mailboxes.
func (h *Handler) HandleNewPost(ctx context.Context, event queue.NewPostEvent) error {
	// LIMIT cap+1 bounds the query; anything at or past the cap is
	// bypassed, so the full edge set is never counted.
	followerIDs, err := h.followers.FollowerIDs(ctx, event.UserID, h.followerCap+1)
	if err != nil {
		metrics.FanoutEventsTotal.WithLabelValues("error").Inc()
		return err
	}

	if len(followerIDs) == 0 {
		metrics.FanoutEventsTotal.WithLabelValues("no_followers").Inc()
		return nil
	}
	if len(followerIDs) >= h.followerCap {
		log.Printf("[Fanout] celebrity bypass: author=%s followers>=%d post=%s", event.UserID, h.followerCap, event.PostID)
		metrics.FanoutEventsTotal.WithLabelValues("celebrity_bypass").Inc()
		return nil
	}

	// All deliveries of one event share a score, so a retried event
	// rescores followers consistently instead of splitting the batch.
	score := float64(time.Now().UnixNano()) / 1e9

	g, gctx := errgroup.WithContext(ctx)
	limit := h.maxInflight
	if len(followerIDs) < limit {
		limit = len(followerIDs)
	}
	g.SetLimit(limit)

	for _, followerID := range followerIDs {
		g.Go(func() error {
			if err := h.mailbox.Push(gctx, followerID, event.PostID, score); err != nil {
				return err
			}
			metrics.FanoutMailboxWrites.Inc()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.FanoutEventsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.FanoutEventsTotal.WithLabelValues("delivered").Inc()
	log.Printf("[Fanout] delivered: post=%s author=%s followers=%d", event.PostID, event.UserID, len(followerIDs))
	return nil
}
