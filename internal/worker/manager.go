package worker

import (
	"context"
	"log"
	"time"

	"socialfeed/internal/queue"
)

const (
	readCount           = 16
	readBlock           = 5 * time.Second
	readErrorWait       = 2 * time.Second
	pendingScanInterval = 30 * time.Second
)

// Manager owns the consume loop: it drains this consumer's pending
// entries at startup (crash recovery), then reads new events until the
// context is cancelled, re-sweeping the pending list periodically. An
// event is acknowledged only after the handler succeeds; failed events
// stay pending and are retried on the next sweep.
type Manager struct {
	consumer queue.Consumer
	handler  *Handler
	group    string
	name     string
}

func NewManager(consumer queue.Consumer, handler *Handler, group, consumerName string) *Manager {
	return &Manager{
		consumer: consumer,
		handler:  handler,
		group:    group,
		name:     consumerName,
	}
}

func (m *Manager) Run(ctx context.Context) error {
	if err := m.consumer.EnsureGroup(ctx, queue.StreamNewPosts, m.group); err != nil {
		return err
	}

	log.Printf("[Worker] %s consuming %s (group=%s)", m.name, queue.StreamNewPosts, m.group)
	m.processPending(ctx)
	nextPendingScan := time.Now().Add(pendingScanInterval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Worker] %s stopping", m.name)
			return ctx.Err()
		default:
		}

		messages, err := m.consumer.Read(ctx, queue.StreamNewPosts, m.group, m.name, readCount, readBlock)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[Worker] %s read failed: %v", m.name, err)
			time.Sleep(readErrorWait)
			continue
		}
		m.processBatch(ctx, messages)

		// Failed events sit in the pending list; sweep it periodically
		// so a transient mailbox blip heals without a restart.
		if time.Now().After(nextPendingScan) {
			m.processPending(ctx)
			nextPendingScan = time.Now().Add(pendingScanInterval)
		}
	}
}

// processPending walks this consumer's entire pending list, oldest
// first: crash leftovers plus events whose fan-out failed. The cursor
// advances past entries that fail again, so one stuck event cannot
// wedge the scan; it stays pending for the next sweep.
func (m *Manager) processPending(ctx context.Context) {
	cursor := "0"
	for {
		messages, err := m.consumer.ReadPending(ctx, queue.StreamNewPosts, m.group, m.name, cursor, readCount)
		if err != nil {
			log.Printf("[Worker] %s pending read failed: %v", m.name, err)
			return
		}
		if len(messages) == 0 {
			return
		}
		log.Printf("[Worker] %s retrying %d pending events", m.name, len(messages))
		m.processBatch(ctx, messages)
		cursor = messages[len(messages)-1].ID
	}
}

func (m *Manager) processBatch(ctx context.Context, messages []queue.Message) {
	for _, msg := range messages {
		event, err := queue.ParseNewPostEvent(msg.Values)
		if err != nil {
			// Malformed events can never succeed; ack so they don't
			// poison the pending list forever.
			log.Printf("[Worker] %s dropping malformed event %s: %v", m.name, msg.ID, err)
			m.ack(ctx, msg.ID)
			continue
		}

		if err := m.handler.HandleNewPost(ctx, event); err != nil {
			log.Printf("[Worker] %s fan-out failed (will retry): msg=%s post=%s err=%v", m.name, msg.ID, event.PostID, err)
			continue
		}
		m.ack(ctx, msg.ID)
	}
}

func (m *Manager) ack(ctx context.Context, messageID string) {
	if err := m.consumer.Ack(ctx, queue.StreamNewPosts, m.group, messageID); err != nil {
		log.Printf("[Worker] %s ack failed: msg=%s err=%v", m.name, messageID, err)
	}
}
