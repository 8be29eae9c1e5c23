package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iago/content-orchestrator-back/internal/ai"
	"github.com/iago/content-orchestrator-back/internal/domain"
)

func articleRequest(mode domain.FeaturedImageMode, model string) domain.GenerationRequest {
	return domain.GenerationRequest{
		Language:          "English",
		WordCount:         150,
		Tone:              "professional",
		IncludeIntro:      true,
		IncludeConclusion: true,
		FeaturedImage:     mode,
		Model:             model,
		CustomPrompt:      "Mention the free trial.",
		BrandName:         "Acme",
		UserID:            "u1",
		BrandID:           "b1",
		ContentSettings:   map[string]any{"brand_mentions": "regular", "use_brand_info": true},
	}
}

func articleTopic() domain.Topic {
	return domain.Topic{ID: "t1", Title: "Planning a product launch", Keywords: []string{"launch plan"}, Outline: []string{"Goals", "Timeline"}}
}

func TestWriteUsesModelOutput(t *testing.T) {
	generator := &scriptedGenerator{available: true, text: sampleArticleMarkdown("Launch planning that works")}
	writer := NewArticleWriter(ArticleWriterDependencies{Client: generator})

	article, err := writer.Write(context.Background(), articleRequest(domain.FeaturedImageAIGeneration, ai.ModelPremium), articleTopic())
	require.NoError(t, err)

	assert.False(t, article.UsedFallback)
	assert.Equal(t, ai.ModelPremium, article.ModelID)
	assert.Equal(t, "Launch planning that works", article.Title)
	assert.Contains(t, article.HTML, "<h2>Why it matters</h2>")
	assert.Equal(t, "A short introduction for the team and the reader.", article.Excerpt)
	assert.Equal(t, "t1", article.TopicID)
	require.NotNil(t, article.FeaturedImage)
	assert.Contains(t, article.FeaturedImage.Prompt, "Launch planning that works")

	require.Len(t, generator.prompts, 1)
	assert.Contains(t, generator.prompts[0], "Mention the free trial.")
	assert.Contains(t, generator.prompts[0], "Goals; Timeline")
}

func TestWriteFallsBackToSecondModel(t *testing.T) {
	generator := &scriptedGenerator{available: true, err: errBoom}
	writer := NewArticleWriter(ArticleWriterDependencies{Client: generator})

	article, err := writer.Write(context.Background(), articleRequest(domain.FeaturedImageNone, ai.ModelPremium), articleTopic())
	require.NoError(t, err)

	assert.Equal(t, []string{ai.ModelPremium, ai.ModelStandard}, generator.models)
	assert.True(t, article.UsedFallback)
	assert.Equal(t, "Planning a product launch", article.Title)
	assert.Contains(t, article.Markdown, "## Timeline")
	assert.Contains(t, article.Markdown, "## Conclusion")
	assert.Nil(t, article.FeaturedImage)
}

func TestWriteWithoutProviderProducesDraft(t *testing.T) {
	writer := NewArticleWriter(ArticleWriterDependencies{})

	article, err := writer.Write(context.Background(), articleRequest(domain.FeaturedImageGallerySelection, ""), articleTopic())
	require.NoError(t, err)
	assert.True(t, article.UsedFallback)
	assert.Equal(t, fallbackModelID, article.ModelID)
	require.NotNil(t, article.FeaturedImage)
	assert.Equal(t, "gallery", article.FeaturedImage.Source)
	assert.Equal(t, "launch plan", article.FeaturedImage.Prompt)
}

func TestWriteStopsOnExhaustedCredits(t *testing.T) {
	generator := &scriptedGenerator{available: true, err: &ai.ProviderError{Provider: "openai", StatusCode: 402, Message: "insufficient credits"}}
	writer := NewArticleWriter(ArticleWriterDependencies{Client: generator})

	_, err := writer.Write(context.Background(), articleRequest(domain.FeaturedImageNone, ai.ModelStandard), articleTopic())
	require.Error(t, err)
	assert.True(t, ai.IsCreditsExhausted(err))
	assert.Len(t, generator.models, 1)
}

func TestWriteRejectsLowQualityOutput(t *testing.T) {
	generator := &scriptedGenerator{available: true, text: "# Tiny\n\nNot enough words here."}
	writer := NewArticleWriter(ArticleWriterDependencies{Client: generator})

	article, err := writer.Write(context.Background(), articleRequest(domain.FeaturedImageNone, ai.ModelStandard), articleTopic())
	require.NoError(t, err)
	assert.True(t, article.UsedFallback)
}
