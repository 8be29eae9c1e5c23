package orchestrator

import (
	"context"
	"log"
	"strings"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

type InstructionSource interface {
	GetInstruction(ctx context.Context, instructionID string) (*domain.CustomInstruction, error)
}

// Resolver turns a custom instruction id into prompt text. Lookups are best
// effort: any failure resolves to no instruction.
type Resolver struct {
	source InstructionSource
	logger *log.Logger
}

func NewResolver(source InstructionSource, logger *log.Logger) *Resolver {
	return &Resolver{source: source, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, instructionID string) string {
	id := strings.TrimSpace(instructionID)
	if id == "" || id == domain.NoCustomInstruction {
		return ""
	}
	if r.source == nil {
		return ""
	}

	instruction, err := r.source.GetInstruction(ctx, id)
	if err != nil {
		r.logf("custom instruction lookup failed instruction_id=%s err=%v", id, err)
		return ""
	}
	if instruction == nil {
		return ""
	}
	return strings.TrimSpace(instruction.Content)
}

func (r *Resolver) logf(format string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}
