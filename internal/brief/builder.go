package brief

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

// Chunk is one ranked piece of context handed to the writer prompt.
type Chunk struct {
	ID    string
	Text  string
	Score float64
}

// Brief is everything the article prompt needs for one topic.
type Brief struct {
	Title              string
	Keywords           []string
	Intent             string
	Outline            []string
	Language           string
	Tone               string
	WordCount          int
	IncludeIntro       bool
	IncludeConclusion  bool
	IncludeFAQ         bool
	BrandName          string
	BrandGuidance      string
	CompetitorGuidance string
	CustomPrompt       string
	Context            string
	Chunks             []Chunk
	TokenCount         int
}

type Builder struct {
	maxInputTokens int
	maxChunks      int
}

func NewBuilder() *Builder {
	return &Builder{maxInputTokens: 1800, maxChunks: 10}
}

// Build assembles the brief for topic under the settings of request.
func (b *Builder) Build(request domain.GenerationRequest, topic domain.Topic) Brief {
	brandName := strings.TrimSpace(request.BrandName)
	useBrand, _ := request.ContentSettings["use_brand_info"].(bool)
	brandLevel := domain.MentionLevel(settingString(request.ContentSettings, "brand_mentions"))
	if !useBrand {
		brandLevel = domain.MentionNone
	}
	competitorLevel := domain.MentionLevel(settingString(request.ContentSettings, "competitor_mentions"))

	chunks := dedupeChunks(b.collect(request, topic))
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score == chunks[j].Score {
			return chunks[i].ID < chunks[j].ID
		}
		return chunks[i].Score > chunks[j].Score
	})

	selected := make([]Chunk, 0, len(chunks))
	totalTokens := 0
	for _, chunk := range chunks {
		tokens := estimateTokens(chunk.Text)
		if tokens <= 0 || totalTokens+tokens > b.maxInputTokens {
			continue
		}
		selected = append(selected, chunk)
		totalTokens += tokens
		if len(selected) >= b.maxChunks {
			break
		}
	}

	var text strings.Builder
	for index, chunk := range selected {
		text.WriteString(fmt.Sprintf("[%d] %s\n", index+1, chunk.Text))
	}

	return Brief{
		Title:              strings.TrimSpace(topic.Title),
		Keywords:           append([]string(nil), topic.Keywords...),
		Intent:             string(topic.Intent),
		Outline:            append([]string(nil), topic.Outline...),
		Language:           firstNonEmpty(request.Language, domain.DefaultLanguage),
		Tone:               firstNonEmpty(request.Tone, domain.DefaultTone),
		WordCount:          positiveOr(request.WordCount, domain.DefaultWordCount),
		IncludeIntro:       request.IncludeIntro,
		IncludeConclusion:  request.IncludeConclusion,
		IncludeFAQ:         request.IncludeFAQ,
		BrandName:          brandName,
		BrandGuidance:      brandGuidance(brandLevel, brandName),
		CompetitorGuidance: competitorGuidance(competitorLevel),
		CustomPrompt:       strings.TrimSpace(request.CustomPrompt),
		Context:            strings.TrimSpace(text.String()),
		Chunks:             selected,
		TokenCount:         totalTokens,
	}
}

// collect turns the free-form content settings and topic metadata into
// scored chunks. Keywords and the outline rank above brand background.
func (b *Builder) collect(request domain.GenerationRequest, topic domain.Topic) []Chunk {
	chunks := make([]Chunk, 0, 8)
	add := func(id, text string, score float64) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		if len(text) > 600 {
			text = text[:600]
		}
		chunks = append(chunks, Chunk{ID: id, Text: text, Score: score})
	}

	if len(topic.Keywords) > 0 {
		add("keywords", "Target keywords: "+strings.Join(topic.Keywords, ", "), 100)
	}
	if topic.Intent != "" {
		add("intent", "Search intent: "+string(topic.Intent), 95)
	}
	if len(topic.Outline) > 0 {
		add("outline", "Suggested outline: "+strings.Join(topic.Outline, " | "), 90)
	}
	for index, source := range topic.Sources {
		add(fmt.Sprintf("source-%02d", index), "Reference: "+source, 60-float64(index))
	}

	keys := make([]string, 0, len(request.ContentSettings))
	for key := range request.ContentSettings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch key {
		case "brand_mentions", "competitor_mentions", "use_brand_info":
			continue
		}
		value := settingString(request.ContentSettings, key)
		if value == "" {
			continue
		}
		label := strings.ReplaceAll(key, "_", " ")
		add("setting-"+key, label+": "+value, 70)
	}
	return chunks
}

func brandGuidance(level domain.MentionLevel, brandName string) string {
	if brandName == "" {
		brandName = "the brand"
	}
	switch level {
	case domain.MentionMinimal:
		return fmt.Sprintf("Mention %s at most once, where it fits naturally.", brandName)
	case domain.MentionRegular:
		return fmt.Sprintf("Mention %s two or three times where relevant.", brandName)
	case domain.MentionFrequent:
		return fmt.Sprintf("Feature %s prominently throughout the article.", brandName)
	default:
		return "Do not mention the brand."
	}
}

func competitorGuidance(level domain.MentionLevel) string {
	switch level {
	case domain.MentionMinimal:
		return "Mention competitors only when the topic cannot be covered without them."
	case domain.MentionRegular, domain.MentionFrequent:
		return "Competitors may be named and compared fairly."
	default:
		return "Do not mention competitors."
	}
}

func settingString(settings map[string]any, key string) string {
	value, ok := settings[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			if text, ok := item.(string); ok && strings.TrimSpace(text) != "" {
				parts = append(parts, strings.TrimSpace(text))
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(typed, ", ")
	case bool, float64, int:
		return fmt.Sprint(typed)
	default:
		return ""
	}
}

func dedupeChunks(chunks []Chunk) []Chunk {
	seen := make(map[string]int, len(chunks))
	result := make([]Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		key := strings.ToLower(strings.Join(strings.Fields(chunk.Text), " "))
		if index, exists := seen[key]; exists {
			if chunk.Score > result[index].Score {
				result[index] = chunk
			}
			continue
		}
		seen[key] = len(result)
		result = append(result, chunk)
	}
	return result
}

func estimateTokens(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	count := len([]rune(trimmed)) / 4
	if count < 1 {
		count = 1
	}
	return count
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
