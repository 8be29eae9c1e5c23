package brief

import (
	"strings"
	"testing"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

func TestBuildRanksTopicSignalsFirst(t *testing.T) {
	request := domain.GenerationRequest{
		Language:  "English",
		Tone:      "friendly",
		WordCount: 900,
		BrandName: "Acme",
		ContentSettings: map[string]any{
			"brand_mentions":      "frequent",
			"competitor_mentions": "none",
			"use_brand_info":      true,
			"target_audience":     "small agencies",
		},
	}
	topic := domain.Topic{
		Title:    "  Scaling a content team ",
		Keywords: []string{"content ops", "editorial calendar"},
		Intent:   domain.IntentInformational,
		Outline:  []string{"Hiring", "Tooling"},
	}

	result := NewBuilder().Build(request, topic)

	if result.Title != "Scaling a content team" {
		t.Fatalf("unexpected title %q", result.Title)
	}
	if len(result.Chunks) != 4 || result.Chunks[0].ID != "keywords" {
		t.Fatalf("unexpected chunks %#v", result.Chunks)
	}
	if !strings.Contains(result.Context, "target audience: small agencies") {
		t.Fatalf("expected content setting in context, got %q", result.Context)
	}
	if !strings.Contains(result.BrandGuidance, "Feature Acme prominently") {
		t.Fatalf("unexpected brand guidance %q", result.BrandGuidance)
	}
	if result.CompetitorGuidance != "Do not mention competitors." {
		t.Fatalf("unexpected competitor guidance %q", result.CompetitorGuidance)
	}
}

func TestBuildSuppressesBrandWhenBrandInfoDisabled(t *testing.T) {
	request := domain.GenerationRequest{
		BrandName: "Acme",
		ContentSettings: map[string]any{
			"brand_mentions": "regular",
			"use_brand_info": false,
		},
	}
	result := NewBuilder().Build(request, domain.Topic{Title: "T"})

	if result.BrandGuidance != "Do not mention the brand." {
		t.Fatalf("unexpected brand guidance %q", result.BrandGuidance)
	}
	if result.Language != domain.DefaultLanguage || result.WordCount != domain.DefaultWordCount {
		t.Fatalf("expected defaults, got %q %d", result.Language, result.WordCount)
	}
}

func TestDedupeChunksKeepsHighestScore(t *testing.T) {
	chunks := dedupeChunks([]Chunk{
		{ID: "a", Text: "Same  text", Score: 10},
		{ID: "b", Text: "same text", Score: 20},
	})
	if len(chunks) != 1 || chunks[0].ID != "b" {
		t.Fatalf("unexpected dedupe result %#v", chunks)
	}
}
