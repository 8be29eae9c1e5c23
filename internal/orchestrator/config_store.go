package orchestrator

import (
	"sync"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

// ConfigPatch is a partial update of the generation configuration. Nil
// fields are left untouched.
type ConfigPatch struct {
	Language               *string                   `json:"language,omitempty"`
	WordCount              *int                      `json:"word_count,omitempty"`
	Tone                   *string                   `json:"tone,omitempty"`
	FeaturedImageMode      *domain.FeaturedImageMode `json:"featured_image_mode,omitempty" validate:"omitempty,oneof=none ai_generation gallery_selection"`
	BrandMentionLevel      *domain.MentionLevel      `json:"brand_mention_level,omitempty" validate:"omitempty,oneof=none minimal regular frequent"`
	CompetitorMentionLevel *domain.MentionLevel      `json:"competitor_mention_level,omitempty" validate:"omitempty,oneof=none minimal regular"`
	CustomInstructionID    *string                   `json:"custom_instruction_id,omitempty"`
	ContentSettings        map[string]any            `json:"content_settings,omitempty"`
}

// ConfigStore holds the generation parameters of one workspace. It has no
// side effects and performs no validation beyond keeping the word count
// positive.
type ConfigStore struct {
	mu     sync.RWMutex
	config domain.GenerationConfiguration
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{config: domain.DefaultGenerationConfiguration()}
}

func (s *ConfigStore) Snapshot() domain.GenerationConfiguration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone()
}

func (s *ConfigStore) SetLanguage(language string) {
	s.update(func(c *domain.GenerationConfiguration) { c.Language = language })
}

func (s *ConfigStore) SetWordCount(words int) {
	s.update(func(c *domain.GenerationConfiguration) { c.WordCount = normalizeWordCount(words) })
}

func (s *ConfigStore) SetTone(tone string) {
	s.update(func(c *domain.GenerationConfiguration) { c.Tone = tone })
}

func (s *ConfigStore) SetFeaturedImageMode(mode domain.FeaturedImageMode) {
	s.update(func(c *domain.GenerationConfiguration) { c.FeaturedImageMode = mode })
}

func (s *ConfigStore) SetBrandMentionLevel(level domain.MentionLevel) {
	s.update(func(c *domain.GenerationConfiguration) { c.BrandMentionLevel = level })
}

func (s *ConfigStore) SetCompetitorMentionLevel(level domain.MentionLevel) {
	s.update(func(c *domain.GenerationConfiguration) { c.CompetitorMentionLevel = level })
}

// SetCustomInstructionID selects an instruction; an empty id means none.
func (s *ConfigStore) SetCustomInstructionID(id string) {
	if id == "" {
		id = domain.NoCustomInstruction
	}
	s.update(func(c *domain.GenerationConfiguration) { c.CustomInstructionID = id })
}

// SetContentSettings replaces the free-form overlay merged into requests.
func (s *ConfigStore) SetContentSettings(settings map[string]any) {
	s.update(func(c *domain.GenerationConfiguration) {
		c.ContentSettings = make(map[string]any, len(settings))
		for key, value := range settings {
			c.ContentSettings[key] = value
		}
	})
}

func (s *ConfigStore) Apply(patch ConfigPatch) domain.GenerationConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Language != nil {
		s.config.Language = *patch.Language
	}
	if patch.WordCount != nil {
		s.config.WordCount = normalizeWordCount(*patch.WordCount)
	}
	if patch.Tone != nil {
		s.config.Tone = *patch.Tone
	}
	if patch.FeaturedImageMode != nil {
		s.config.FeaturedImageMode = *patch.FeaturedImageMode
	}
	if patch.BrandMentionLevel != nil {
		s.config.BrandMentionLevel = *patch.BrandMentionLevel
	}
	if patch.CompetitorMentionLevel != nil {
		s.config.CompetitorMentionLevel = *patch.CompetitorMentionLevel
	}
	if patch.CustomInstructionID != nil {
		id := *patch.CustomInstructionID
		if id == "" {
			id = domain.NoCustomInstruction
		}
		s.config.CustomInstructionID = id
	}
	if patch.ContentSettings != nil {
		s.config.ContentSettings = make(map[string]any, len(patch.ContentSettings))
		for key, value := range patch.ContentSettings {
			s.config.ContentSettings[key] = value
		}
	}
	return s.config.Clone()
}

func (s *ConfigStore) Reset() {
	s.mu.Lock()
	s.config = domain.DefaultGenerationConfiguration()
	s.mu.Unlock()
}

func (s *ConfigStore) update(mutate func(*domain.GenerationConfiguration)) {
	s.mu.Lock()
	mutate(&s.config)
	s.mu.Unlock()
}

func normalizeWordCount(words int) int {
	if words <= 0 {
		return domain.DefaultWordCount
	}
	return words
}
