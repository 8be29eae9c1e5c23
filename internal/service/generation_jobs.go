package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/policy"
	"github.com/iago/content-orchestrator-back/internal/queue"
	"github.com/iago/content-orchestrator-back/internal/repository"
)

// GenerationJobsService is the job runner's front door: it records the
// session and queues it for the worker. Submit returns once the job is
// queued, not when it finishes.
type GenerationJobsService struct {
	repo     repository.SessionsRepository
	producer queue.Producer
	logger   *log.Logger
}

func NewGenerationJobsService(repo repository.SessionsRepository, producer queue.Producer, logger *log.Logger) *GenerationJobsService {
	return &GenerationJobsService{repo: repo, producer: producer, logger: logger}
}

func (s *GenerationJobsService) Submit(ctx context.Context, request domain.GenerationRequest) (string, error) {
	if len(request.Topics) == 0 {
		return "", fmt.Errorf("%w: no topics in request", ErrInvalidInput)
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("encode generation request: %w", err)
	}
	if err := policy.EnforceContentPolicy(payload); err != nil {
		return "", err
	}
	request.CustomPrompt = policy.MaskPIIString(request.CustomPrompt)
	payload, err = json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("encode generation request: %w", err)
	}

	now := time.Now().UTC()
	session := &domain.GenerationSession{
		ID:            uuid.NewString(),
		UserID:        request.UserID,
		BrandID:       request.BrandID,
		Status:        domain.SessionRunning,
		Topics:        request.Topics,
		TotalArticles: len(request.Topics),
		Request:       request,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	message := domain.QueueMessage{
		SessionID:   session.ID,
		UserID:      request.UserID,
		BrandID:     request.BrandID,
		Payload:     payload,
		Attempt:     0,
		RequestedAt: now,
	}

	if err := s.producer.Enqueue(ctx, message); err != nil {
		session.Status = domain.SessionError
		session.ErrorMessage = err.Error()
		session.UpdatedAt = time.Now().UTC()
		// The caller may already be gone; the row must not stay running.
		if updateErr := s.repo.UpdateSession(context.WithoutCancel(ctx), session); updateErr != nil {
			s.logf("mark session failed session_id=%s err=%v", session.ID, updateErr)
		}
		return "", fmt.Errorf("enqueue session: %w", err)
	}

	return session.ID, nil
}

func (s *GenerationJobsService) GetSession(ctx context.Context, sessionID string) (*domain.GenerationSession, error) {
	return s.repo.GetSession(ctx, sessionID)
}

func (s *GenerationJobsService) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
