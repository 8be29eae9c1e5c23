package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/iago/content-orchestrator-back/internal/ai"
	"github.com/iago/content-orchestrator-back/internal/domain"
)

// scriptedGenerator answers every call with the same text or error and
// records the models it was asked for.
type scriptedGenerator struct {
	mu        sync.Mutex
	text      string
	err       error
	available bool
	models    []string
	prompts   []string
}

func (g *scriptedGenerator) Available() bool { return g.available }

func (g *scriptedGenerator) Generate(_ context.Context, request ai.GenerateRequest) (ai.GenerateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.models = append(g.models, request.Model)
	g.prompts = append(g.prompts, request.Input)
	if g.err != nil {
		return ai.GenerateResult{}, g.err
	}
	return ai.GenerateResult{Text: g.text, ModelID: request.Model}, nil
}

type failingProducer struct{ err error }

func (p failingProducer) Enqueue(context.Context, domain.QueueMessage) error { return p.err }

type recordingProducer struct {
	mu       sync.Mutex
	messages []domain.QueueMessage
}

func (p *recordingProducer) Enqueue(_ context.Context, message domain.QueueMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
	return nil
}

var errBoom = errors.New("boom")

func sampleArticleMarkdown(title string) string {
	var builder strings.Builder
	builder.WriteString("# " + title + "\n\n")
	builder.WriteString("A short introduction for the team and the reader.\n\n")
	for _, heading := range []string{"Why it matters", "How to start", "Conclusion"} {
		builder.WriteString("## " + heading + "\n\n")
		for i := 0; i < 40; i++ {
			builder.WriteString("the plan ")
		}
		builder.WriteString("\n\n")
	}
	return builder.String()
}
