package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

const (
	fieldSessionID   = "session_id"
	fieldUserID      = "user_id"
	fieldBrandID     = "brand_id"
	fieldPayload     = "payload"
	fieldAttempt     = "attempt"
	fieldRequestedAt = "requested_at"
)

var requiredStreamFields = []string{fieldSessionID, fieldUserID, fieldBrandID, fieldPayload, fieldAttempt, fieldRequestedAt}

type StreamsConfig struct {
	Addr        string
	Password    string
	DB          int
	Stream      string
	DLQStream   string
	Group       string
	Consumer    string
	MaxAttempts int
	// MaxLen caps the stream length with approximate trimming. Zero keeps
	// every entry.
	MaxLen int64
	// ClaimIdle is how long a delivered but unacknowledged job may sit
	// with a dead consumer before another consumer takes it over.
	ClaimIdle time.Duration
	ReadBlock time.Duration
	ReadCount int64
	Logger    *log.Logger
}

func (c StreamsConfig) withDefaults() StreamsConfig {
	if c.Stream == "" {
		c.Stream = "generation_jobs"
	}
	if c.DLQStream == "" {
		c.DLQStream = c.Stream + "_dlq"
	}
	if c.Group == "" {
		c.Group = "article_workers"
	}
	if c.Consumer == "" {
		c.Consumer = "api-1"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.ClaimIdle <= 0 {
		c.ClaimIdle = 10 * time.Minute
	}
	if c.ReadBlock <= 0 {
		c.ReadBlock = 5 * time.Second
	}
	if c.ReadCount <= 0 {
		c.ReadCount = 4
	}
	return c
}

// StreamsQueue implements Producer and Consumer on Redis Streams with a
// consumer group and a dead-letter stream.
type StreamsQueue struct {
	client *redis.Client
	cfg    StreamsConfig
}

func NewStreamsQueue(ctx context.Context, cfg StreamsConfig) (*StreamsQueue, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	cfg = cfg.withDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	queue := &StreamsQueue{client: client, cfg: cfg}
	if err := queue.ensureGroup(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return queue, nil
}

func (q *StreamsQueue) Close() error {
	return q.client.Close()
}

func (q *StreamsQueue) Enqueue(ctx context.Context, message domain.QueueMessage) error {
	args := &redis.XAddArgs{Stream: q.cfg.Stream, Values: encodeStreamFields(message)}
	if q.cfg.MaxLen > 0 {
		args.MaxLen = q.cfg.MaxLen
		args.Approx = true
	}
	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("enqueue session %s: %w", message.SessionID, err)
	}
	return nil
}

// Consume first reclaims jobs stranded by dead consumers, then blocks on
// new deliveries until ctx ends.
func (q *StreamsQueue) Consume(ctx context.Context, handler Handler) error {
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}
	if err := q.reclaim(ctx, handler); err != nil {
		return err
	}

	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.cfg.Group,
			Consumer: q.cfg.Consumer,
			Streams:  []string{q.cfg.Stream, ">"},
			Count:    q.cfg.ReadCount,
			Block:    q.cfg.ReadBlock,
		}).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			return fmt.Errorf("xreadgroup: %w", err)
		}

		for _, stream := range streams {
			for _, item := range stream.Messages {
				q.handle(ctx, item, handler)
			}
		}
	}
	return ctx.Err()
}

// handle runs one delivery. The entry is always acknowledged: a failed job
// is re-added with a bumped attempt or moved to the dead-letter stream.
func (q *StreamsQueue) handle(ctx context.Context, item redis.XMessage, handler Handler) {
	defer q.ackAndDelete(ctx, item.ID)

	message, err := decodeStreamFields(item.Values)
	if err != nil {
		q.deadLetter(ctx, domain.QueueMessage{}, item.ID, err.Error())
		return
	}

	handleErr := handler(ctx, message)
	if handleErr == nil {
		return
	}

	message.Attempt++
	if message.Attempt >= q.cfg.MaxAttempts {
		q.deadLetter(ctx, message, item.ID, handleErr.Error())
		return
	}
	if err := q.Enqueue(ctx, message); err != nil {
		q.deadLetter(ctx, message, item.ID, "requeue failed: "+err.Error())
	}
}

func (q *StreamsQueue) reclaim(ctx context.Context, handler Handler) error {
	start := "0-0"
	for {
		items, next, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   q.cfg.Stream,
			Group:    q.cfg.Group,
			Consumer: q.cfg.Consumer,
			MinIdle:  q.cfg.ClaimIdle,
			Start:    start,
			Count:    16,
		}).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("xautoclaim: %w", err)
		}
		if len(items) > 0 {
			q.logf("reclaimed %d stalled generation jobs", len(items))
		}
		for _, item := range items {
			q.handle(ctx, item, handler)
		}
		if next == "" || next == "0-0" || len(items) == 0 {
			return nil
		}
		start = next
	}
}

func (q *StreamsQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.cfg.Stream, q.cfg.Group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("ensure stream group: %w", err)
	}
	return nil
}

func (q *StreamsQueue) ackAndDelete(ctx context.Context, streamID string) {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAck(ctx, q.cfg.Stream, q.cfg.Group, streamID)
		pipe.XDel(ctx, q.cfg.Stream, streamID)
		return nil
	})
	if err != nil {
		q.logf("ack stream entry %s failed: %v", streamID, err)
	}
}

func (q *StreamsQueue) deadLetter(ctx context.Context, message domain.QueueMessage, streamID, reason string) {
	values := encodeStreamFields(message)
	values["stream_id"] = streamID
	values["error"] = reason
	values["moved_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	if err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.cfg.DLQStream, Values: values}).Err(); err != nil {
		q.logf("dead-letter session %s failed: %v", message.SessionID, err)
		return
	}
	q.logf("session %s dead-lettered after %d attempts: %s", message.SessionID, message.Attempt, reason)
}

func (q *StreamsQueue) logf(format string, args ...any) {
	if q.cfg.Logger != nil {
		q.cfg.Logger.Printf(format, args...)
	}
}

func encodeStreamFields(message domain.QueueMessage) map[string]any {
	return map[string]any{
		fieldSessionID:   message.SessionID,
		fieldUserID:      message.UserID,
		fieldBrandID:     message.BrandID,
		fieldPayload:     string(message.Payload),
		fieldAttempt:     message.Attempt,
		fieldRequestedAt: message.RequestedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeStreamFields(values map[string]any) (domain.QueueMessage, error) {
	fields := make(map[string]string, len(requiredStreamFields))
	for _, key := range requiredStreamFields {
		value, ok := values[key]
		if !ok {
			return domain.QueueMessage{}, fmt.Errorf("missing field %s", key)
		}
		switch typed := value.(type) {
		case string:
			fields[key] = typed
		case []byte:
			fields[key] = string(typed)
		default:
			fields[key] = fmt.Sprint(typed)
		}
	}
	if fields[fieldSessionID] == "" {
		return domain.QueueMessage{}, errors.New("empty session_id")
	}

	attempt, err := strconv.Atoi(fields[fieldAttempt])
	if err != nil {
		return domain.QueueMessage{}, fmt.Errorf("invalid attempt: %w", err)
	}
	requestedAt, err := time.Parse(time.RFC3339Nano, fields[fieldRequestedAt])
	if err != nil {
		return domain.QueueMessage{}, fmt.Errorf("invalid requested_at: %w", err)
	}

	return domain.QueueMessage{
		SessionID:   fields[fieldSessionID],
		UserID:      fields[fieldUserID],
		BrandID:     fields[fieldBrandID],
		Payload:     []byte(fields[fieldPayload]),
		Attempt:     attempt,
		RequestedAt: requestedAt,
	}, nil
}
