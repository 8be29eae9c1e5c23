package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

func TestMemoryStoreUpsertSelectedTopicUsesSourceKey(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.UpsertSelectedTopic(ctx, &domain.Topic{
		UserID:        "u1",
		BrandID:       "b1",
		SourceTopicID: "src-1",
		Title:         "Original",
		Status:        domain.TopicStatusSelected,
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second, err := store.UpsertSelectedTopic(ctx, &domain.Topic{
		UserID:        "u1",
		BrandID:       "b1",
		SourceTopicID: "src-1",
		Title:         "Renamed",
		Status:        domain.TopicStatusSelected,
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected same row, got %s and %s", first.ID, second.ID)
	}
	topics, _ := store.ListTopics(ctx, domain.TopicListFilter{BrandID: "b1"})
	if len(topics) != 1 || topics[0].Title != "Renamed" {
		t.Fatalf("unexpected topics: %#v", topics)
	}
}

func TestMemoryStoreListTopicsNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now().UTC()
	err := store.InsertTopics(context.Background(), []domain.Topic{
		{ID: "old", BrandID: "b1", Title: "Old", CreatedAt: now.Add(-time.Hour)},
		{ID: "new", BrandID: "b1", Title: "New", CreatedAt: now},
		{ID: "other", BrandID: "b2", Title: "Other", CreatedAt: now},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	topics, err := store.ListTopics(context.Background(), domain.TopicListFilter{BrandID: "b1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(topics) != 2 || topics[0].ID != "new" || topics[1].ID != "old" {
		t.Fatalf("unexpected order: %#v", topics)
	}
}

func TestMemoryStoreSessionIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	session := &domain.GenerationSession{
		ID:     "s1",
		Status: domain.SessionRunning,
		Topics: []domain.Topic{{ID: "t1", Keywords: []string{"go"}}},
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}
	session.Topics[0].Keywords[0] = "mutated"

	stored, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Topics[0].Keywords[0] != "go" {
		t.Fatalf("expected stored copy to be isolated, got %q", stored.Topics[0].Keywords[0])
	}

	if err := store.UpdateSession(ctx, &domain.GenerationSession{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDisconnectIntegrationDropsPassword(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.SaveIntegration(ctx, &domain.WordPressIntegration{
		BrandID:        "b1",
		SiteURL:        "https://blog.example",
		SealedPassword: "sealed",
		Connected:      true,
	})

	if err := store.DisconnectIntegration(ctx, "b1"); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	integration, err := store.GetIntegration(ctx, "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if integration.Connected || integration.SealedPassword != "" {
		t.Fatalf("expected disconnected integration, got %#v", integration)
	}
}
