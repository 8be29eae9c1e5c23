package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/policy"
	"github.com/iago/content-orchestrator-back/internal/repository"
)

const (
	maxInstructionName    = 120
	maxInstructionContent = 4000
)

type CreateInstructionInput struct {
	UserID  string
	BrandID string
	Name    string
	Content string
}

type InstructionsService struct {
	repo repository.InstructionsRepository
}

func NewInstructionsService(repo repository.InstructionsRepository) *InstructionsService {
	return &InstructionsService{repo: repo}
}

// Create validates and stores a custom instruction. Personal data in the
// content is masked before it is persisted.
func (s *InstructionsService) Create(ctx context.Context, input CreateInstructionInput) (*domain.CustomInstruction, error) {
	name := strings.TrimSpace(input.Name)
	content := strings.TrimSpace(input.Content)
	if name == "" || content == "" {
		return nil, fmt.Errorf("%w: name and content are required", ErrInvalidInput)
	}
	if len(name) > maxInstructionName || len(content) > maxInstructionContent {
		return nil, fmt.Errorf("%w: instruction is too long", ErrInvalidInput)
	}
	if err := policy.EnforceText(name, content); err != nil {
		return nil, err
	}

	instruction := &domain.CustomInstruction{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		BrandID:   input.BrandID,
		Name:      name,
		Content:   policy.MaskPIIString(content),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateInstruction(ctx, instruction); err != nil {
		return nil, fmt.Errorf("create instruction: %w", err)
	}
	return instruction, nil
}

func (s *InstructionsService) GetInstruction(ctx context.Context, instructionID string) (*domain.CustomInstruction, error) {
	return s.repo.GetInstruction(ctx, instructionID)
}

func (s *InstructionsService) List(ctx context.Context, userID, brandID string) ([]domain.CustomInstruction, error) {
	return s.repo.ListInstructions(ctx, userID, brandID)
}

func (s *InstructionsService) Delete(ctx context.Context, instructionID string) error {
	return s.repo.DeleteInstruction(ctx, instructionID)
}
