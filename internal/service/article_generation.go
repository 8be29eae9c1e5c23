package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/iago/content-orchestrator-back/internal/ai"
	"github.com/iago/content-orchestrator-back/internal/brief"
	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/metrics"
	"github.com/iago/content-orchestrator-back/internal/quality"
)

const (
	articlePromptFile  = "article_v1.tmpl"
	articleInstruction = "You are an experienced content writer. Return only the article in markdown."
	fallbackModelID    = "fallback-local"
	maxExcerptLength   = 240
)

type ArticleWriterDependencies struct {
	Router     *ai.ModelRouter
	Client     ai.TextGenerator
	Builder    *brief.Builder
	Validator  *quality.ArticleValidator
	PromptsDir string
	Logger     *log.Logger
}

// ArticleWriter turns one topic of a generation request into an article.
type ArticleWriter struct {
	router    *ai.ModelRouter
	client    ai.TextGenerator
	builder   *brief.Builder
	validator *quality.ArticleValidator
	prompts   *promptRenderer
	markdown  goldmark.Markdown
	logger    *log.Logger
}

func NewArticleWriter(deps ArticleWriterDependencies) *ArticleWriter {
	if deps.Router == nil {
		deps.Router = ai.NewModelRouter(ai.ModelRouterConfig{})
	}
	if deps.Builder == nil {
		deps.Builder = brief.NewBuilder()
	}
	if deps.Validator == nil {
		deps.Validator = quality.NewArticleValidator()
	}
	return &ArticleWriter{
		router:    deps.Router,
		client:    deps.Client,
		builder:   deps.Builder,
		validator: deps.Validator,
		prompts:   newPromptRenderer(deps.PromptsDir),
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:    deps.Logger,
	}
}

// Write produces the article for topic. Model and validation failures fall
// back to a plain draft; exhausted credits and cancellation are returned so
// the caller can stop the whole session.
func (w *ArticleWriter) Write(ctx context.Context, request domain.GenerationRequest, topic domain.Topic) (domain.Article, error) {
	started := time.Now()
	articleBrief := w.builder.Build(request, topic)
	profile := w.router.Article(request.Model, articleBrief.WordCount)

	markdown, modelID, usedFallback, err := w.draft(ctx, articleBrief, profile)
	if err != nil {
		return domain.Article{}, err
	}

	title, body := quality.SplitTitle(markdown)
	if title == "" {
		title = articleBrief.Title
		markdown = "# " + title + "\n\n" + body
	}

	html, err := w.renderHTML(markdown)
	if err != nil {
		return domain.Article{}, fmt.Errorf("render article html: %w", err)
	}

	metrics.ArticlesGenerated.WithLabelValues(modelID, fmt.Sprint(usedFallback)).Inc()
	metrics.ArticleLatency.WithLabelValues(modelID).Observe(time.Since(started).Seconds())

	return domain.Article{
		TopicID:       topic.ID,
		UserID:        request.UserID,
		BrandID:       request.BrandID,
		Title:         title,
		Excerpt:       excerpt(body),
		Markdown:      markdown,
		HTML:          html,
		WordCount:     quality.CountWords(body),
		FeaturedImage: featuredImage(request.FeaturedImage, title, topic.Keywords),
		ModelID:       modelID,
		UsedFallback:  usedFallback,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (w *ArticleWriter) draft(ctx context.Context, articleBrief brief.Brief, profile ai.ModelProfile) (string, string, bool, error) {
	prompt, err := w.prompts.render(articlePromptFile, articleBrief)
	if err != nil {
		w.logf("render prompt failed for article title=%q: %v", articleBrief.Title, err)
		return fallbackArticle(articleBrief), fallbackModelID, true, nil
	}

	text, modelID, err := generateText(ctx, w.client, profile, articleInstruction, prompt)
	if err != nil {
		if ai.IsCreditsExhausted(err) || ctx.Err() != nil {
			return "", "", false, err
		}
		if !errors.Is(err, ai.ErrProviderUnavailable) {
			w.logf("article generation failed, fallback enabled title=%q: %v", articleBrief.Title, err)
		}
		return fallbackArticle(articleBrief), fallbackModelID, true, nil
	}

	check, err := w.validator.Validate(quality.ArticleDraft{
		Markdown:          text,
		Language:          articleBrief.Language,
		Tone:              articleBrief.Tone,
		TargetWords:       articleBrief.WordCount,
		IncludeIntro:      articleBrief.IncludeIntro,
		IncludeConclusion: articleBrief.IncludeConclusion,
		IncludeFAQ:        articleBrief.IncludeFAQ,
	})
	if err != nil {
		w.logf("article validation failed, fallback enabled title=%q model=%s: %v", articleBrief.Title, modelID, err)
		return fallbackArticle(articleBrief), fallbackModelID, true, nil
	}
	if len(check.Issues) > 0 {
		w.logf("article accepted with issues title=%q score=%.2f issues=%s", articleBrief.Title, check.Score, strings.Join(check.Issues, ","))
	}

	title := firstNonEmpty(check.Title, articleBrief.Title)
	return "# " + title + "\n\n" + check.Body, modelID, false, nil
}

func (w *ArticleWriter) renderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := w.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackArticle builds a plain draft from the brief so a session can
// finish while no model is reachable.
func fallbackArticle(articleBrief brief.Brief) string {
	var builder strings.Builder
	builder.WriteString("# " + articleBrief.Title + "\n\n")

	if articleBrief.IncludeIntro {
		builder.WriteString(fmt.Sprintf("This article covers %s.", strings.ToLower(articleBrief.Title)))
		if len(articleBrief.Keywords) > 0 {
			builder.WriteString(" It focuses on " + strings.Join(articleBrief.Keywords, ", ") + ".")
		}
		builder.WriteString("\n\n")
	}

	sections := articleBrief.Outline
	if len(sections) == 0 {
		sections = []string{"Overview", "Key points"}
	}
	for _, section := range sections {
		builder.WriteString("## " + section + "\n\n")
		builder.WriteString("Draft section pending editorial review.\n\n")
	}

	if articleBrief.IncludeFAQ {
		builder.WriteString("## FAQ\n\nQuestions and answers pending editorial review.\n\n")
	}
	if articleBrief.IncludeConclusion {
		builder.WriteString("## Conclusion\n\nSummary pending editorial review.\n")
	}
	return strings.TrimSpace(builder.String())
}

func featuredImage(mode domain.FeaturedImageMode, title string, keywords []string) *domain.FeaturedImage {
	switch mode {
	case domain.FeaturedImageAIGeneration:
		prompt := fmt.Sprintf("Editorial header illustration for a blog article titled %q", title)
		if len(keywords) > 0 {
			prompt += ", themes: " + strings.Join(keywords, ", ")
		}
		return &domain.FeaturedImage{Mode: mode, Prompt: prompt}
	case domain.FeaturedImageGallerySelection:
		query := title
		if len(keywords) > 0 {
			query = keywords[0]
		}
		return &domain.FeaturedImage{Mode: mode, Prompt: query, Source: "gallery"}
	default:
		return nil
	}
}

func excerpt(body string) string {
	for _, paragraph := range strings.Split(body, "\n\n") {
		trimmed := strings.TrimSpace(paragraph)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		runes := []rune(strings.Join(strings.Fields(trimmed), " "))
		if len(runes) > maxExcerptLength {
			return strings.TrimSpace(string(runes[:maxExcerptLength])) + "..."
		}
		return string(runes)
	}
	return ""
}

func (w *ArticleWriter) logf(format string, args ...any) {
	if w.logger == nil {
		return
	}
	w.logger.Printf(format, args...)
}
