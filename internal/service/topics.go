package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iago/content-orchestrator-back/internal/cache"
	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/repository"
)

const (
	topicsListKind   = "topics"
	articlesListKind = "articles"
)

type SelectTopicInput struct {
	UserID        string
	BrandID       string
	CampaignID    string
	SourceTopicID string
	Title         string
	Keywords      []string
	Intent        domain.SearchIntent
	Outline       []string
}

type TopicsService struct {
	repo   repository.TopicsRepository
	cache  *cache.Cache
	logger *log.Logger
}

func NewTopicsService(repo repository.TopicsRepository, listCache *cache.Cache, logger *log.Logger) *TopicsService {
	if listCache == nil {
		listCache = cache.New(cache.Config{})
	}
	return &TopicsService{repo: repo, cache: listCache, logger: logger}
}

// List returns the topics of a brand, newest first. Results are cached per
// brand until InvalidateLists drops them.
func (s *TopicsService) List(ctx context.Context, filter domain.TopicListFilter) ([]domain.Topic, error) {
	key := cache.Key(cache.BrandNamespace(topicsListKind, filter.BrandID), filter.UserID, string(filter.Status))
	return cache.Load(s.cache, key, func() ([]domain.Topic, error) {
		topics, err := s.repo.ListTopics(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list topics: %w", err)
		}
		return topics, nil
	})
}

// Select stores a suggestion as a selected topic of the user. Selecting the
// same source topic again updates the existing row.
func (s *TopicsService) Select(ctx context.Context, input SelectTopicInput) (*domain.Topic, error) {
	if strings.TrimSpace(input.UserID) == "" || strings.TrimSpace(input.BrandID) == "" {
		return nil, fmt.Errorf("%w: user and brand are required", ErrInvalidInput)
	}
	sourceID := strings.TrimSpace(input.SourceTopicID)
	if sourceID == "" {
		return nil, fmt.Errorf("%w: source_topic_id is required", ErrInvalidInput)
	}

	topic := &domain.Topic{
		UserID:        input.UserID,
		BrandID:       input.BrandID,
		CampaignID:    input.CampaignID,
		SourceTopicID: sourceID,
		Title:         strings.TrimSpace(input.Title),
		Keywords:      append([]string(nil), input.Keywords...),
		Intent:        domain.NormalizeIntent(string(input.Intent)),
		Outline:       append([]string(nil), input.Outline...),
	}

	if topic.Title == "" {
		source, err := s.repo.GetTopic(ctx, sourceID)
		if err != nil {
			return nil, fmt.Errorf("load source topic: %w", err)
		}
		if source.BrandID != input.BrandID || source.UserID != input.UserID {
			return nil, fmt.Errorf("load source topic: %w", repository.ErrNotFound)
		}
		topic.Title = source.Title
		topic.Keywords = append([]string(nil), source.Keywords...)
		topic.Intent = source.Intent
		topic.Outline = append([]string(nil), source.Outline...)
		topic.Sources = append([]string(nil), source.Sources...)
		if topic.CampaignID == "" {
			topic.CampaignID = source.CampaignID
		}
	}

	topic.ID = uuid.NewString()
	topic.Status = domain.TopicStatusSelected
	topic.CreatedAt = time.Now().UTC()

	saved, err := s.repo.UpsertSelectedTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("upsert selected topic: %w", err)
	}
	s.InvalidateLists(input.BrandID)
	return saved, nil
}

// SaveGenerated stores research output. A topic whose title exactly matches
// an existing title of the same brand and campaign is skipped; near
// duplicates are kept.
func (s *TopicsService) SaveGenerated(
	ctx context.Context,
	userID string,
	brandID string,
	campaignID string,
	topics []domain.Topic,
) ([]domain.Topic, error) {
	if strings.TrimSpace(brandID) == "" {
		return nil, fmt.Errorf("%w: brand is required", ErrInvalidInput)
	}

	titles, err := s.repo.ListTopicTitles(ctx, brandID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list topic titles: %w", err)
	}
	existing := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		existing[title] = struct{}{}
	}

	now := time.Now().UTC()
	fresh := make([]domain.Topic, 0, len(topics))
	for index, topic := range topics {
		title := strings.TrimSpace(topic.Title)
		if title == "" {
			continue
		}
		if _, duplicate := existing[title]; duplicate {
			s.logf("skipping duplicate topic brand_id=%s campaign_id=%s title=%q", brandID, campaignID, title)
			continue
		}
		existing[title] = struct{}{}

		topic.ID = uuid.NewString()
		topic.UserID = userID
		topic.BrandID = brandID
		topic.CampaignID = campaignID
		topic.Title = title
		topic.Status = domain.TopicStatusSuggested
		// Keep the model's order when listing newest first.
		topic.CreatedAt = now.Add(-time.Duration(index) * time.Millisecond)
		fresh = append(fresh, topic)
	}

	if len(fresh) == 0 {
		return fresh, nil
	}
	if err := s.repo.InsertTopics(ctx, fresh); err != nil {
		return nil, fmt.Errorf("insert topics: %w", err)
	}
	s.InvalidateLists(brandID)
	return fresh, nil
}

func (s *TopicsService) Get(ctx context.Context, topicID string) (*domain.Topic, error) {
	return s.repo.GetTopic(ctx, topicID)
}

func (s *TopicsService) Delete(ctx context.Context, topicID string) error {
	topic, err := s.repo.GetTopic(ctx, topicID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTopic(ctx, topicID); err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	s.InvalidateLists(topic.BrandID)
	return nil
}

// MarkUsed flags a topic once an article was written for it and drops the
// brand's cached lists, so the topic leaves the selected list right away
// even when the session later ends in error.
func (s *TopicsService) MarkUsed(ctx context.Context, topicID string) error {
	topic, err := s.repo.GetTopic(ctx, topicID)
	if err != nil {
		return fmt.Errorf("mark topic used: %w", err)
	}
	if err := s.repo.UpdateTopicStatus(ctx, topicID, domain.TopicStatusUsed); err != nil {
		return fmt.Errorf("mark topic used: %w", err)
	}
	s.InvalidateLists(topic.BrandID)
	return nil
}

// InvalidateLists drops the cached topic and article lists of a brand.
func (s *TopicsService) InvalidateLists(brandID string) {
	removed := s.cache.InvalidatePrefix(cache.BrandNamespace(topicsListKind, brandID) + "|")
	removed += s.cache.InvalidatePrefix(cache.BrandNamespace(articlesListKind, brandID) + "|")
	if removed > 0 {
		s.logf("list cache invalidated brand_id=%s entries=%d", brandID, removed)
	}
}

func (s *TopicsService) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
