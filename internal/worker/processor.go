package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iago/content-orchestrator-back/internal/ai"
	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/queue"
	"github.com/iago/content-orchestrator-back/internal/repository"
)

// ArticleWriter writes the article of one topic.
type ArticleWriter interface {
	Write(ctx context.Context, request domain.GenerationRequest, topic domain.Topic) (domain.Article, error)
}

type TopicMarker interface {
	MarkUsed(ctx context.Context, topicID string) error
}

type ProcessorDependencies struct {
	Consumer    queue.Consumer
	Sessions    repository.SessionsRepository
	Articles    repository.ArticlesRepository
	Writer      ArticleWriter
	Topics      TopicMarker
	Concurrency int
	Logger      *log.Logger
}

// Processor consumes generation jobs, writes one article per topic and
// keeps the session record up to date.
type Processor struct {
	consumer    queue.Consumer
	sessions    repository.SessionsRepository
	articles    repository.ArticlesRepository
	writer      ArticleWriter
	topics      TopicMarker
	concurrency int
	logger      *log.Logger
}

func NewProcessor(deps ProcessorDependencies) *Processor {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}
	return &Processor{
		consumer:    deps.Consumer,
		sessions:    deps.Sessions,
		articles:    deps.Articles,
		writer:      deps.Writer,
		topics:      deps.Topics,
		concurrency: concurrency,
		logger:      deps.Logger,
	}
}

func (p *Processor) Start(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := p.consumer.Consume(ctx, p.processMessage)
		if err == nil || ctx.Err() != nil {
			return
		}
		p.logf("worker consume loop error: %v", err)

		timer := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// processMessage returns an error only for failures worth a redelivery.
// Problems with the job itself end the session in error instead.
func (p *Processor) processMessage(ctx context.Context, message domain.QueueMessage) error {
	session, err := p.sessions.GetSession(ctx, message.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.logf("dropping job for unknown session session_id=%s", message.SessionID)
			return nil
		}
		return fmt.Errorf("load session %s: %w", message.SessionID, err)
	}
	if session.Status.Terminal() {
		p.logf("skipping finished session session_id=%s status=%s", session.ID, session.Status)
		return nil
	}

	var request domain.GenerationRequest
	if err := json.Unmarshal(message.Payload, &request); err != nil {
		return p.finish(ctx, session, 0, fmt.Errorf("decode generation request: %w", err))
	}
	topics := request.Topics
	if len(topics) == 0 {
		topics = session.Topics
	}
	if len(topics) == 0 {
		return p.finish(ctx, session, 0, errors.New("session has no topics"))
	}

	completed, runErr := p.generate(ctx, session, request, topics)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return p.finish(ctx, session, completed, runErr)
}

func (p *Processor) generate(
	ctx context.Context,
	session *domain.GenerationSession,
	request domain.GenerationRequest,
	topics []domain.Topic,
) (int, error) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.concurrency)

	var (
		mu        sync.Mutex
		completed int
		failures  []error
	)

	for _, topic := range topics {
		group.Go(func() error {
			article, err := p.writer.Write(groupCtx, request, topic)
			if err != nil {
				if ai.IsCreditsExhausted(err) {
					return err
				}
				p.logf("article failed session_id=%s topic_id=%s err=%v", session.ID, topic.ID, err)
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
				return nil
			}

			article.ID = uuid.NewString()
			article.SessionID = session.ID
			article.UserID = session.UserID
			article.BrandID = session.BrandID
			if err := p.articles.CreateArticle(groupCtx, &article); err != nil {
				p.logf("persist article failed session_id=%s topic_id=%s err=%v", session.ID, topic.ID, err)
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
				return nil
			}
			if p.topics != nil && topic.ID != "" {
				if err := p.topics.MarkUsed(groupCtx, topic.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
					p.logf("mark topic used failed topic_id=%s err=%v", topic.ID, err)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			completed++
			session.CompletedArticles = completed
			session.UpdatedAt = time.Now().UTC()
			if err := p.sessions.UpdateSession(groupCtx, session); err != nil {
				p.logf("progress update failed session_id=%s err=%v", session.ID, err)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return completed, err
	}
	if completed == 0 && len(failures) > 0 {
		return 0, fmt.Errorf("no articles could be generated: %w", failures[0])
	}
	return completed, nil
}

func (p *Processor) finish(ctx context.Context, session *domain.GenerationSession, completed int, runErr error) error {
	session.CompletedArticles = completed
	session.UpdatedAt = time.Now().UTC()

	switch {
	case runErr != nil && ai.IsCreditsExhausted(runErr):
		session.Status = domain.SessionError
		session.ErrorMessage = "AI credits exhausted: " + runErr.Error()
	case runErr != nil:
		session.Status = domain.SessionError
		session.ErrorMessage = runErr.Error()
	case completed == 0:
		session.Status = domain.SessionError
		session.ErrorMessage = "no articles could be generated"
	default:
		session.Status = domain.SessionCompleted
		session.ErrorMessage = ""
	}

	if err := p.sessions.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("finish session %s: %w", session.ID, err)
	}
	p.logf("generation session finished session_id=%s status=%s articles=%d/%d", session.ID, session.Status, completed, session.TotalArticles)
	return nil
}

func (p *Processor) logf(format string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Printf(format, args...)
}
