package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/iago/content-orchestrator-back/internal/ai"
	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/policy"
)

const (
	researchPromptFile  = "topic_research_v1.tmpl"
	researchInstruction = "Return only valid JSON. Do not use markdown code fences."
	defaultResearchSize = 5
	maxResearchSize     = 20
)

type ResearchInput struct {
	UserID     string
	BrandID    string
	CampaignID string
	Seed       string
	Count      int
	Language   string
}

type ResearchOutput struct {
	ModelID      string         `json:"model_id"`
	UsedFallback bool           `json:"used_fallback"`
	Topics       []domain.Topic `json:"topics"`
	Skipped      int            `json:"skipped"`
}

type ResearchDependencies struct {
	Router     *ai.ModelRouter
	Client     ai.TextGenerator
	Topics     *TopicsService
	PromptsDir string
	Logger     *log.Logger
}

// ResearchService asks the model for topic ideas around a seed and stores
// the new ones as suggestions.
type ResearchService struct {
	router  *ai.ModelRouter
	client  ai.TextGenerator
	topics  *TopicsService
	prompts *promptRenderer
	logger  *log.Logger
}

func NewResearchService(deps ResearchDependencies) *ResearchService {
	if deps.Router == nil {
		deps.Router = ai.NewModelRouter(ai.ModelRouterConfig{})
	}
	return &ResearchService{
		router:  deps.Router,
		client:  deps.Client,
		topics:  deps.Topics,
		prompts: newPromptRenderer(deps.PromptsDir),
		logger:  deps.Logger,
	}
}

func (s *ResearchService) Research(ctx context.Context, input ResearchInput) (ResearchOutput, error) {
	seed := strings.TrimSpace(input.Seed)
	if seed == "" {
		return ResearchOutput{}, fmt.Errorf("%w: seed is required", ErrInvalidInput)
	}
	if err := policy.EnforceText(seed); err != nil {
		return ResearchOutput{}, err
	}
	count := input.Count
	if count <= 0 {
		count = defaultResearchSize
	}
	if count > maxResearchSize {
		count = maxResearchSize
	}
	language := firstNonEmpty(input.Language, domain.DefaultLanguage)

	existing, err := s.existingTitles(ctx, input.BrandID, input.CampaignID)
	if err != nil {
		return ResearchOutput{}, err
	}

	ideas, modelID, usedFallback := s.ideas(ctx, seed, language, count, existing)

	saved, err := s.topics.SaveGenerated(ctx, input.UserID, input.BrandID, input.CampaignID, ideas)
	if err != nil {
		return ResearchOutput{}, err
	}
	return ResearchOutput{
		ModelID:      modelID,
		UsedFallback: usedFallback,
		Topics:       saved,
		Skipped:      len(ideas) - len(saved),
	}, nil
}

func (s *ResearchService) ideas(ctx context.Context, seed, language string, count int, existing []string) ([]domain.Topic, string, bool) {
	prompt, err := s.prompts.render(researchPromptFile, map[string]any{
		"Seed":     seed,
		"Language": language,
		"Count":    count,
		"Existing": existing,
	})
	if err != nil {
		s.logf("render prompt failed for research: %v", err)
		return fallbackTopicIdeas(seed, count), fallbackModelID, true
	}

	text, modelID, err := generateText(ctx, s.client, s.router.Select(ai.TaskResearch), researchInstruction, prompt)
	if err != nil {
		if !errors.Is(err, ai.ErrProviderUnavailable) {
			s.logf("topic research failed, fallback enabled: %v", err)
		}
		return fallbackTopicIdeas(seed, count), fallbackModelID, true
	}

	topics, err := parseTopicIdeas(text, count)
	if err != nil {
		s.logf("parse topic research failed, fallback enabled: %v", err)
		return fallbackTopicIdeas(seed, count), fallbackModelID, true
	}
	return topics, modelID, false
}

func (s *ResearchService) existingTitles(ctx context.Context, brandID, campaignID string) ([]string, error) {
	if s.topics == nil {
		return nil, errors.New("topics service not configured")
	}
	titles, err := s.topics.repo.ListTopicTitles(ctx, brandID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list topic titles: %w", err)
	}
	return titles, nil
}

// parseTopicIdeas reads the model answer through the row adapter so loose
// keyword_focus and outline shapes end up as canonical topics.
func parseTopicIdeas(text string, limit int) ([]domain.Topic, error) {
	rawJSON, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Topics []domain.TopicRow `json:"topics"`
	}
	if err := json.Unmarshal(rawJSON, &envelope); err != nil {
		return nil, fmt.Errorf("decode topics json: %w", err)
	}

	topics := make([]domain.Topic, 0, len(envelope.Topics))
	for _, row := range envelope.Topics {
		topic := domain.TopicFromRow(row)
		if topic.Title == "" {
			continue
		}
		if policy.EnforceText(topic.Title) != nil {
			continue
		}
		topics = append(topics, topic)
		if len(topics) >= limit {
			break
		}
	}
	if len(topics) == 0 {
		return nil, errors.New("no usable topics in model output")
	}
	return topics, nil
}

func fallbackTopicIdeas(seed string, count int) []domain.Topic {
	angles := []struct {
		format string
		intent domain.SearchIntent
	}{
		{"What is %s? A practical introduction", domain.IntentInformational},
		{"How to get started with %s", domain.IntentInformational},
		{"%s: common mistakes and how to avoid them", domain.IntentInformational},
		{"Best %s tools compared", domain.IntentCommercial},
		{"%s checklist for small teams", domain.IntentTransactional},
		{"The future of %s", domain.IntentInformational},
	}
	if count > len(angles) {
		count = len(angles)
	}

	topics := make([]domain.Topic, 0, count)
	for _, angle := range angles[:count] {
		title := []rune(fmt.Sprintf(angle.format, seed))
		title[0] = unicode.ToUpper(title[0])
		topics = append(topics, domain.Topic{
			Title:    string(title),
			Keywords: []string{seed},
			Intent:   angle.intent,
		})
	}
	return topics
}

func (s *ResearchService) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
