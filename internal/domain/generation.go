package domain

import (
	"encoding/json"
	"time"
)

type FeaturedImageMode string

const (
	FeaturedImageNone             FeaturedImageMode = "none"
	FeaturedImageAIGeneration     FeaturedImageMode = "ai_generation"
	FeaturedImageGallerySelection FeaturedImageMode = "gallery_selection"
)

type MentionLevel string

const (
	MentionNone     MentionLevel = "none"
	MentionMinimal  MentionLevel = "minimal"
	MentionRegular  MentionLevel = "regular"
	MentionFrequent MentionLevel = "frequent"
)

// NoCustomInstruction is the sentinel for "no custom instruction selected".
const NoCustomInstruction = "none"

const (
	DefaultLanguage               = "English"
	DefaultWordCount              = 1500
	DefaultTone                   = "professional"
	DefaultFeaturedImage          = FeaturedImageAIGeneration
	DefaultBrandMentionLevel      = MentionRegular
	DefaultCompetitorMentionLevel = MentionMinimal
)

// GenerationConfiguration holds the user-tunable generation parameters.
type GenerationConfiguration struct {
	Language               string            `json:"language"`
	WordCount              int               `json:"word_count"`
	Tone                   string            `json:"tone"`
	FeaturedImageMode      FeaturedImageMode `json:"featured_image_mode"`
	BrandMentionLevel      MentionLevel      `json:"brand_mention_level"`
	CompetitorMentionLevel MentionLevel      `json:"competitor_mention_level"`
	CustomInstructionID    string            `json:"custom_instruction_id"`
	ContentSettings        map[string]any    `json:"content_settings,omitempty"`
}

func DefaultGenerationConfiguration() GenerationConfiguration {
	return GenerationConfiguration{
		Language:               DefaultLanguage,
		WordCount:              DefaultWordCount,
		Tone:                   DefaultTone,
		FeaturedImageMode:      DefaultFeaturedImage,
		BrandMentionLevel:      DefaultBrandMentionLevel,
		CompetitorMentionLevel: DefaultCompetitorMentionLevel,
		CustomInstructionID:    NoCustomInstruction,
		ContentSettings:        map[string]any{},
	}
}

// Clone returns a copy whose ContentSettings map is not shared.
func (c GenerationConfiguration) Clone() GenerationConfiguration {
	clone := c
	clone.ContentSettings = make(map[string]any, len(c.ContentSettings))
	for key, value := range c.ContentSettings {
		clone.ContentSettings[key] = value
	}
	return clone
}

// GenerationRequest is the payload handed to the job submission endpoint.
type GenerationRequest struct {
	Topics            []Topic           `json:"topics"`
	Language          string            `json:"language"`
	WordCount         int               `json:"wordCount"`
	Tone              string            `json:"tone"`
	IncludeIntro      bool              `json:"includeIntro"`
	IncludeConclusion bool              `json:"includeConclusion"`
	IncludeFAQ        bool              `json:"includeFAQ"`
	FeaturedImage     FeaturedImageMode `json:"featuredImage"`
	Model             string            `json:"model"`
	CustomPrompt      string            `json:"customPrompt"`
	BrandID           string            `json:"brandId"`
	BrandName         string            `json:"brandName"`
	UserID            string            `json:"userId"`
	WorkflowType      string            `json:"workflowType"`
	ContentSettings   map[string]any    `json:"contentSettings"`
}

type SessionStatus string

const (
	SessionIdle      SessionStatus = "idle"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionError     SessionStatus = "error"
)

func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionError
}

// GenerationSession is one bulk generation job as tracked by the store.
type GenerationSession struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	BrandID           string            `json:"brand_id"`
	Status            SessionStatus     `json:"status"`
	Topics            []Topic           `json:"topics"`
	CompletedArticles int               `json:"completed_articles"`
	TotalArticles     int               `json:"total_articles"`
	Request           GenerationRequest `json:"request"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// QueueMessage is the transport format sent to queue backends.
type QueueMessage struct {
	SessionID   string          `json:"session_id"`
	UserID      string          `json:"user_id"`
	BrandID     string          `json:"brand_id"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	RequestedAt time.Time       `json:"requested_at"`
}
