package repository

import (
	"context"
	"errors"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("resource already exists")
)

// TopicsRepository persists topics for a brand.
type TopicsRepository interface {
	ListTopics(ctx context.Context, filter domain.TopicListFilter) ([]domain.Topic, error)
	GetTopic(ctx context.Context, topicID string) (*domain.Topic, error)
	// UpsertSelectedTopic inserts or updates on the (user, brand, source topic) key.
	UpsertSelectedTopic(ctx context.Context, topic *domain.Topic) (*domain.Topic, error)
	InsertTopics(ctx context.Context, topics []domain.Topic) error
	ListTopicTitles(ctx context.Context, brandID, campaignID string) ([]string, error)
	UpdateTopicStatus(ctx context.Context, topicID string, status domain.TopicStatus) error
	DeleteTopic(ctx context.Context, topicID string) error
}

type InstructionsRepository interface {
	CreateInstruction(ctx context.Context, instruction *domain.CustomInstruction) error
	GetInstruction(ctx context.Context, instructionID string) (*domain.CustomInstruction, error)
	ListInstructions(ctx context.Context, userID, brandID string) ([]domain.CustomInstruction, error)
	DeleteInstruction(ctx context.Context, instructionID string) error
}

type SessionsRepository interface {
	CreateSession(ctx context.Context, session *domain.GenerationSession) error
	UpdateSession(ctx context.Context, session *domain.GenerationSession) error
	GetSession(ctx context.Context, sessionID string) (*domain.GenerationSession, error)
}

type ArticlesRepository interface {
	CreateArticle(ctx context.Context, article *domain.Article) error
	ListArticles(ctx context.Context, filter domain.ArticleListFilter) ([]domain.Article, error)
}

type IntegrationsRepository interface {
	GetIntegration(ctx context.Context, brandID string) (*domain.WordPressIntegration, error)
	SaveIntegration(ctx context.Context, integration *domain.WordPressIntegration) error
	DisconnectIntegration(ctx context.Context, brandID string) error
}

// Store groups every repository the service needs.
type Store interface {
	TopicsRepository
	InstructionsRepository
	SessionsRepository
	ArticlesRepository
	IntegrationsRepository
}
