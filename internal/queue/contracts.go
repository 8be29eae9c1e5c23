package queue

import (
	"context"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

// Producer hands generation jobs to a queue backend.
type Producer interface {
	Enqueue(ctx context.Context, message domain.QueueMessage) error
}

// Consumer delivers generation jobs to a handler. A handler error triggers
// a retry until the backend's attempt limit, then dead-lettering.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
}

type Handler func(context.Context, domain.QueueMessage) error
