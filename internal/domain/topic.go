package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

type SearchIntent string

const (
	IntentInformational SearchIntent = "informational"
	IntentNavigational  SearchIntent = "navigational"
	IntentCommercial    SearchIntent = "commercial"
	IntentTransactional SearchIntent = "transactional"
)

// NormalizeIntent maps loose intent strings onto the known set. Unknown
// values become empty (no intent).
func NormalizeIntent(value string) SearchIntent {
	switch SearchIntent(strings.ToLower(strings.TrimSpace(value))) {
	case IntentInformational:
		return IntentInformational
	case IntentNavigational:
		return IntentNavigational
	case IntentCommercial:
		return IntentCommercial
	case IntentTransactional:
		return IntentTransactional
	default:
		return ""
	}
}

type TopicStatus string

const (
	TopicStatusSuggested TopicStatus = "suggested"
	TopicStatusSelected  TopicStatus = "selected"
	TopicStatusUsed      TopicStatus = "used"
)

// Topic is the canonical candidate article subject.
type Topic struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id,omitempty"`
	BrandID       string       `json:"brand_id,omitempty"`
	CampaignID    string       `json:"campaign_id,omitempty"`
	SourceTopicID string       `json:"source_topic_id,omitempty"`
	Title         string       `json:"title"`
	Keywords      []string     `json:"keywords"`
	Intent        SearchIntent `json:"intent,omitempty"`
	Status        TopicStatus  `json:"status,omitempty"`
	Outline       []string     `json:"outline,omitempty"`
	Sources       []string     `json:"sources,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

type TopicListFilter struct {
	UserID  string
	BrandID string
	Status  TopicStatus
}

// KeywordFocus accepts the legacy keyword_focus column, which was stored
// either as a single (possibly comma separated) string or as a list.
type KeywordFocus []string

func (k *KeywordFocus) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*k = nil
		return nil
	}

	switch trimmed[0] {
	case '"':
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*k = splitKeywords(single)
		return nil
	case '[':
		var list []any
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		values := make([]string, 0, len(list))
		for _, item := range list {
			text, ok := item.(string)
			if !ok {
				continue
			}
			values = append(values, splitKeywords(text)...)
		}
		*k = dedupeKeywords(values)
		return nil
	default:
		return errors.New("keyword_focus must be a string or a list of strings")
	}
}

func (k KeywordFocus) MarshalJSON() ([]byte, error) {
	if k == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(k))
}

// TopicRow is the loosely typed storage/model shape of a topic.
type TopicRow struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	BrandID       string          `json:"brand_id"`
	CampaignID    string          `json:"campaign_id"`
	SourceTopicID string          `json:"source_topic_id"`
	Title         string          `json:"title"`
	KeywordFocus  KeywordFocus    `json:"keyword_focus"`
	Keywords      KeywordFocus    `json:"keywords"`
	Intent        string          `json:"search_intent"`
	Status        string          `json:"status"`
	Outline       json.RawMessage `json:"outline"`
	Sources       []string        `json:"sources"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TopicFromRow is the only place where loose row shapes become a Topic.
func TopicFromRow(row TopicRow) Topic {
	keywords := append([]string(nil), row.Keywords...)
	keywords = append(keywords, row.KeywordFocus...)

	status := TopicStatus(strings.ToLower(strings.TrimSpace(row.Status)))
	if status == "" {
		status = TopicStatusSuggested
	}

	return Topic{
		ID:            strings.TrimSpace(row.ID),
		UserID:        row.UserID,
		BrandID:       row.BrandID,
		CampaignID:    row.CampaignID,
		SourceTopicID: row.SourceTopicID,
		Title:         strings.TrimSpace(row.Title),
		Keywords:      dedupeKeywords(keywords),
		Intent:        NormalizeIntent(row.Intent),
		Status:        status,
		Outline:       decodeOutline(row.Outline),
		Sources:       append([]string(nil), row.Sources...),
		CreatedAt:     row.CreatedAt,
	}
}

func decodeOutline(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var headings []string
	if err := json.Unmarshal(raw, &headings); err == nil {
		return dedupeKeywords(headings)
	}

	// Outlines produced by research come back as [{"heading": "..."}].
	var sections []struct {
		Heading string `json:"heading"`
	}
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil
	}
	result := make([]string, 0, len(sections))
	for _, section := range sections {
		if heading := strings.TrimSpace(section.Heading); heading != "" {
			result = append(result, heading)
		}
	}
	return result
}

func splitKeywords(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func dedupeKeywords(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
