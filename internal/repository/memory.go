package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iago/content-orchestrator-back/internal/domain"
)

// MemoryStore keeps every row in memory for local development and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	topics       map[string]*domain.Topic
	instructions map[string]*domain.CustomInstruction
	sessions     map[string]*domain.GenerationSession
	articles     map[string]*domain.Article
	integrations map[string]*domain.WordPressIntegration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		topics:       make(map[string]*domain.Topic),
		instructions: make(map[string]*domain.CustomInstruction),
		sessions:     make(map[string]*domain.GenerationSession),
		articles:     make(map[string]*domain.Article),
		integrations: make(map[string]*domain.WordPressIntegration),
	}
}

func (s *MemoryStore) ListTopics(_ context.Context, filter domain.TopicListFilter) ([]domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Topic, 0)
	for _, topic := range s.topics {
		if filter.BrandID != "" && topic.BrandID != filter.BrandID {
			continue
		}
		if filter.UserID != "" && topic.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && topic.Status != filter.Status {
			continue
		}
		items = append(items, cloneTopic(*topic))
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *MemoryStore) GetTopic(_ context.Context, topicID string) (*domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topic, ok := s.topics[topicID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := cloneTopic(*topic)
	return &clone, nil
}

func (s *MemoryStore) UpsertSelectedTopic(_ context.Context, topic *domain.Topic) (*domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.topics {
		if topic.SourceTopicID == "" {
			break
		}
		if existing.UserID == topic.UserID &&
			existing.BrandID == topic.BrandID &&
			existing.SourceTopicID == topic.SourceTopicID {
			existing.Title = topic.Title
			existing.Keywords = append([]string(nil), topic.Keywords...)
			existing.Intent = topic.Intent
			existing.Outline = append([]string(nil), topic.Outline...)
			existing.Status = topic.Status
			clone := cloneTopic(*existing)
			return &clone, nil
		}
	}

	stored := cloneTopic(*topic)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.topics[stored.ID] = &stored
	clone := cloneTopic(stored)
	return &clone, nil
}

func (s *MemoryStore) InsertTopics(_ context.Context, topics []domain.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, topic := range topics {
		stored := cloneTopic(topic)
		if stored.ID == "" {
			stored.ID = uuid.NewString()
		}
		if _, exists := s.topics[stored.ID]; exists {
			return ErrConflict
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = time.Now().UTC()
		}
		s.topics[stored.ID] = &stored
	}
	return nil
}

func (s *MemoryStore) ListTopicTitles(_ context.Context, brandID, campaignID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make([]string, 0)
	for _, topic := range s.topics {
		if topic.BrandID != brandID || topic.CampaignID != campaignID {
			continue
		}
		titles = append(titles, topic.Title)
	}
	return titles, nil
}

func (s *MemoryStore) UpdateTopicStatus(_ context.Context, topicID string, status domain.TopicStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topic, ok := s.topics[topicID]
	if !ok {
		return ErrNotFound
	}
	topic.Status = status
	return nil
}

func (s *MemoryStore) DeleteTopic(_ context.Context, topicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[topicID]; !ok {
		return ErrNotFound
	}
	delete(s.topics, topicID)
	return nil
}

func (s *MemoryStore) CreateInstruction(_ context.Context, instruction *domain.CustomInstruction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instructions[instruction.ID]; exists {
		return ErrConflict
	}
	clone := *instruction
	s.instructions[instruction.ID] = &clone
	return nil
}

func (s *MemoryStore) GetInstruction(_ context.Context, instructionID string) (*domain.CustomInstruction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instruction, ok := s.instructions[instructionID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *instruction
	return &clone, nil
}

func (s *MemoryStore) ListInstructions(_ context.Context, userID, brandID string) ([]domain.CustomInstruction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.CustomInstruction, 0)
	for _, instruction := range s.instructions {
		if userID != "" && instruction.UserID != userID {
			continue
		}
		if brandID != "" && instruction.BrandID != brandID {
			continue
		}
		items = append(items, *instruction)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *MemoryStore) DeleteInstruction(_ context.Context, instructionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instructions[instructionID]; !ok {
		return ErrNotFound
	}
	delete(s.instructions, instructionID)
	return nil
}

func (s *MemoryStore) CreateSession(_ context.Context, session *domain.GenerationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return ErrConflict
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *MemoryStore) UpdateSession(_ context.Context, session *domain.GenerationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return ErrNotFound
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (*domain.GenerationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(session), nil
}

func (s *MemoryStore) CreateArticle(_ context.Context, article *domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.articles[article.ID]; exists {
		return ErrConflict
	}
	clone := cloneArticle(*article)
	s.articles[article.ID] = &clone
	return nil
}

func (s *MemoryStore) ListArticles(_ context.Context, filter domain.ArticleListFilter) ([]domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Article, 0)
	for _, article := range s.articles {
		if filter.BrandID != "" && article.BrandID != filter.BrandID {
			continue
		}
		if filter.UserID != "" && article.UserID != filter.UserID {
			continue
		}
		if filter.SessionID != "" && article.SessionID != filter.SessionID {
			continue
		}
		items = append(items, cloneArticle(*article))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *MemoryStore) GetIntegration(_ context.Context, brandID string) (*domain.WordPressIntegration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	integration, ok := s.integrations[strings.TrimSpace(brandID)]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *integration
	return &clone, nil
}

func (s *MemoryStore) SaveIntegration(_ context.Context, integration *domain.WordPressIntegration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *integration
	s.integrations[integration.BrandID] = &clone
	return nil
}

func (s *MemoryStore) DisconnectIntegration(_ context.Context, brandID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	integration, ok := s.integrations[brandID]
	if !ok {
		return ErrNotFound
	}
	integration.Connected = false
	integration.SealedPassword = ""
	integration.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneTopic(topic domain.Topic) domain.Topic {
	clone := topic
	clone.Keywords = append([]string(nil), topic.Keywords...)
	clone.Outline = append([]string(nil), topic.Outline...)
	clone.Sources = append([]string(nil), topic.Sources...)
	return clone
}

func cloneSession(session *domain.GenerationSession) *domain.GenerationSession {
	if session == nil {
		return nil
	}
	clone := *session
	clone.Topics = make([]domain.Topic, 0, len(session.Topics))
	for _, topic := range session.Topics {
		clone.Topics = append(clone.Topics, cloneTopic(topic))
	}
	clone.Request.Topics = append([]domain.Topic(nil), session.Request.Topics...)
	clone.Request.ContentSettings = make(map[string]any, len(session.Request.ContentSettings))
	for key, value := range session.Request.ContentSettings {
		clone.Request.ContentSettings[key] = value
	}
	return &clone
}

func cloneArticle(article domain.Article) domain.Article {
	clone := article
	if article.FeaturedImage != nil {
		image := *article.FeaturedImage
		clone.FeaturedImage = &image
	}
	return clone
}
