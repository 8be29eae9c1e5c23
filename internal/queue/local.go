package queue

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

// DeadLetter is a job that exhausted its attempts.
type DeadLetter struct {
	Message  domain.QueueMessage
	Reason   string
	FailedAt time.Time
}

// LocalQueue is the in-process queue used when Redis is not configured.
// Jobs do not survive a restart.
type LocalQueue struct {
	jobs        chan domain.QueueMessage
	maxAttempts int
	retryDelay  time.Duration
	logger      *log.Logger

	mu          sync.Mutex
	deadLetters []DeadLetter
	retrying    int
}

func NewLocalQueue(bufferSize, maxAttempts int, logger *log.Logger) *LocalQueue {
	if bufferSize <= 0 {
		bufferSize = 512
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &LocalQueue{
		jobs:        make(chan domain.QueueMessage, bufferSize),
		maxAttempts: maxAttempts,
		retryDelay:  500 * time.Millisecond,
		logger:      logger,
	}
}

func (q *LocalQueue) Enqueue(ctx context.Context, message domain.QueueMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.jobs <- message:
		return nil
	}
}

func (q *LocalQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case message := <-q.jobs:
			if err := handler(ctx, message); err != nil {
				q.retry(ctx, message, err)
			}
		}
	}
}

// retry schedules the job again with a linear backoff, or dead-letters it
// once the attempts are used up.
func (q *LocalQueue) retry(ctx context.Context, message domain.QueueMessage, cause error) {
	message.Attempt++
	if message.Attempt >= q.maxAttempts {
		q.mu.Lock()
		q.deadLetters = append(q.deadLetters, DeadLetter{Message: message, Reason: cause.Error(), FailedAt: time.Now().UTC()})
		q.mu.Unlock()
		q.logf("local queue dead-lettered session_id=%s attempt=%d err=%v", message.SessionID, message.Attempt, cause)
		return
	}

	q.mu.Lock()
	q.retrying++
	q.mu.Unlock()

	time.AfterFunc(time.Duration(message.Attempt)*q.retryDelay, func() {
		defer func() {
			q.mu.Lock()
			q.retrying--
			q.mu.Unlock()
		}()
		select {
		case q.jobs <- message:
		case <-ctx.Done():
			q.logf("local queue dropped retry on shutdown session_id=%s", message.SessionID)
		}
	})
}

// Depth is the number of jobs waiting, including scheduled retries.
func (q *LocalQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) + q.retrying
}

func (q *LocalQueue) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DeadLetter(nil), q.deadLetters...)
}

func (q *LocalQueue) logf(format string, args ...any) {
	if q.logger == nil {
		return
	}
	q.logger.Printf(format, args...)
}
