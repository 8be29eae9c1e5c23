package ai

import "strings"

type TaskKind string

const (
	TaskArticle  TaskKind = "article"
	TaskResearch TaskKind = "research"
)

const (
	ModelPremium  = "gpt-4.1"
	ModelStandard = "gpt-4.1-mini"
)

type ModelProfile struct {
	PrimaryModel    string
	FallbackModel   string
	Temperature     float64
	MaxOutputTokens int
}

type ModelRouterConfig struct {
	ArticleFallback string

	ResearchPrimary  string
	ResearchFallback string
}

type ModelRouter struct {
	config ModelRouterConfig
}

func NewModelRouter(config ModelRouterConfig) *ModelRouter {
	if strings.TrimSpace(config.ArticleFallback) == "" {
		config.ArticleFallback = "gpt-4.1-nano"
	}
	if strings.TrimSpace(config.ResearchPrimary) == "" {
		config.ResearchPrimary = ModelStandard
	}
	if strings.TrimSpace(config.ResearchFallback) == "" {
		config.ResearchFallback = "gpt-4.1-nano"
	}
	return &ModelRouter{config: config}
}

// Article returns the profile for writing one article with the model the
// job asked for. Premium jobs fall back to the standard model, standard
// jobs to the configured fallback.
func (r *ModelRouter) Article(requestedModel string, wordCount int) ModelProfile {
	primary := strings.TrimSpace(requestedModel)
	if primary == "" {
		primary = ModelStandard
	}
	fallback := r.config.ArticleFallback
	if primary == ModelPremium {
		fallback = ModelStandard
	}

	// Roughly 1.4 tokens per word plus room for headings and FAQ.
	maxTokens := wordCount*14/10 + 600
	if maxTokens < 1200 {
		maxTokens = 1200
	}
	if maxTokens > 12000 {
		maxTokens = 12000
	}

	return ModelProfile{
		PrimaryModel:    primary,
		FallbackModel:   fallback,
		Temperature:     0.7,
		MaxOutputTokens: maxTokens,
	}
}

func (r *ModelRouter) Select(task TaskKind) ModelProfile {
	switch task {
	case TaskArticle:
		return r.Article(ModelStandard, 1500)
	default:
		return ModelProfile{
			PrimaryModel:    r.config.ResearchPrimary,
			FallbackModel:   r.config.ResearchFallback,
			Temperature:     0.4,
			MaxOutputTokens: 1400,
		}
	}
}
