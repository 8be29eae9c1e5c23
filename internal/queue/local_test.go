package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

func TestLocalQueueRetriesThenDeadLetters(t *testing.T) {
	q := NewLocalQueue(4, 2, nil)
	q.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go func() {
		_ = q.Consume(ctx, func(context.Context, domain.QueueMessage) error {
			calls.Add(1)
			return errors.New("provider down")
		})
	}()

	if err := q.Enqueue(ctx, sessionMessage("s1", "brand-1", 0)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(q.DeadLetters()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	letters := q.DeadLetters()
	if len(letters) != 1 || letters[0].Message.SessionID != "s1" {
		t.Fatalf("expected s1 dead-lettered, got %#v", letters)
	}
	if letters[0].Reason != "provider down" {
		t.Fatalf("expected handler error as reason, got %q", letters[0].Reason)
	}
	for q.Depth() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if depth := q.Depth(); depth != 0 {
		t.Fatalf("expected empty queue, got depth %d", depth)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 handler calls, got %d", got)
	}
}

func TestLocalQueueDeliversInOrder(t *testing.T) {
	q := NewLocalQueue(4, 3, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, id := range []string{"s1", "s2", "s3"} {
		if err := q.Enqueue(ctx, sessionMessage(id, "brand-1", 0)); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	if depth := q.Depth(); depth != 3 {
		t.Fatalf("expected depth 3, got %d", depth)
	}

	received := make(chan string, 3)
	go func() {
		_ = q.Consume(ctx, func(_ context.Context, message domain.QueueMessage) error {
			received <- message.SessionID
			return nil
		})
	}()

	for _, want := range []string{"s1", "s2", "s3"} {
		select {
		case got := <-received:
			if got != want {
				t.Fatalf("expected %s, got %s", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for %s", want)
		}
	}
}

func TestLocalQueueEnqueueHonorsContext(t *testing.T) {
	q := NewLocalQueue(1, 3, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := q.Enqueue(ctx, sessionMessage("s1", "brand-1", 0)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	cancel()
	if err := q.Enqueue(ctx, sessionMessage("s2", "brand-1", 0)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled on a full queue, got %v", err)
	}
}

func sessionMessage(sessionID, brandID string, attempt int) domain.QueueMessage {
	return domain.QueueMessage{
		SessionID:   sessionID,
		UserID:      "user-1",
		BrandID:     brandID,
		Payload:     []byte(`{"topics":[]}`),
		Attempt:     attempt,
		RequestedAt: time.Now().UTC(),
	}
}
