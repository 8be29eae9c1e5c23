package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iago/content-orchestrator-back/internal/cache"
	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/repository"
)

func TestSaveGeneratedSkipsExactTitlesOnly(t *testing.T) {
	store := repository.NewMemoryStore()
	topics := NewTopicsService(store, cache.New(cache.Config{}), nil)
	ctx := context.Background()

	_, err := topics.SaveGenerated(ctx, "u1", "b1", "c1", []domain.Topic{{Title: "Email marketing basics"}})
	require.NoError(t, err)

	saved, err := topics.SaveGenerated(ctx, "u1", "b1", "c1", []domain.Topic{
		{Title: "Email marketing basics"},
		{Title: "Email Marketing Basics"},
		{Title: "Email marketing basics for 2025"},
		{Title: "  "},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "Email Marketing Basics", saved[0].Title)
	assert.Equal(t, domain.TopicStatusSuggested, saved[0].Status)

	// Another campaign of the same brand does not see the first title.
	other, err := topics.SaveGenerated(ctx, "u1", "b1", "c2", []domain.Topic{{Title: "Email marketing basics"}})
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestListIsCachedUntilInvalidated(t *testing.T) {
	store := repository.NewMemoryStore()
	topics := NewTopicsService(store, cache.New(cache.Config{}), nil)
	ctx := context.Background()
	filter := domain.TopicListFilter{BrandID: "b1"}

	first, err := topics.List(ctx, filter)
	require.NoError(t, err)
	assert.Empty(t, first)

	require.NoError(t, store.InsertTopics(ctx, []domain.Topic{{ID: "t1", BrandID: "b1", Title: "Direct insert"}}))
	cached, err := topics.List(ctx, filter)
	require.NoError(t, err)
	assert.Empty(t, cached)

	topics.InvalidateLists("b1")
	fresh, err := topics.List(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
}

func TestSelectUpsertsOnSourceTopic(t *testing.T) {
	store := repository.NewMemoryStore()
	topics := NewTopicsService(store, nil, nil)
	ctx := context.Background()

	suggestions, err := topics.SaveGenerated(ctx, "u1", "b1", "", []domain.Topic{{Title: "Local SEO", Keywords: []string{"seo"}}})
	require.NoError(t, err)
	sourceID := suggestions[0].ID

	first, err := topics.Select(ctx, SelectTopicInput{UserID: "u1", BrandID: "b1", SourceTopicID: sourceID})
	require.NoError(t, err)
	assert.Equal(t, "Local SEO", first.Title)
	assert.Equal(t, domain.TopicStatusSelected, first.Status)

	second, err := topics.Select(ctx, SelectTopicInput{UserID: "u1", BrandID: "b1", SourceTopicID: sourceID, Title: "Local SEO guide"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Local SEO guide", second.Title)

	_, err = topics.Select(ctx, SelectTopicInput{UserID: "u1", BrandID: "b1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteTopic(t *testing.T) {
	store := repository.NewMemoryStore()
	topics := NewTopicsService(store, nil, nil)
	ctx := context.Background()

	saved, err := topics.SaveGenerated(ctx, "u1", "b1", "", []domain.Topic{{Title: "To delete"}})
	require.NoError(t, err)

	require.NoError(t, topics.Delete(ctx, saved[0].ID))
	assert.ErrorIs(t, topics.Delete(ctx, saved[0].ID), repository.ErrNotFound)
}

func TestSelectRejectsForeignSourceTopic(t *testing.T) {
	store := repository.NewMemoryStore()
	topics := NewTopicsService(store, nil, nil)
	ctx := context.Background()

	require.NoError(t, store.InsertTopics(ctx, []domain.Topic{{
		ID:      "secret",
		UserID:  "owner",
		BrandID: "other-brand",
		Title:   "Confidential launch plan",
		Outline: []string{"private"},
	}}))

	for _, input := range []SelectTopicInput{
		{UserID: "intruder", BrandID: "mine", SourceTopicID: "secret"},
		{UserID: "intruder", BrandID: "other-brand", SourceTopicID: "secret"},
		{UserID: "owner", BrandID: "mine", SourceTopicID: "secret"},
	} {
		selected, err := topics.Select(ctx, input)
		assert.ErrorIs(t, err, repository.ErrNotFound, "%+v", input)
		assert.Nil(t, selected)
	}

	mine, err := store.ListTopics(ctx, domain.TopicListFilter{BrandID: "mine"})
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestMarkUsedDropsTopicFromCachedSelectedList(t *testing.T) {
	store := repository.NewMemoryStore()
	topics := NewTopicsService(store, cache.New(cache.Config{}), nil)
	ctx := context.Background()

	suggestions, err := topics.SaveGenerated(ctx, "u1", "b1", "", []domain.Topic{{Title: "Compost basics"}})
	require.NoError(t, err)
	selected, err := topics.Select(ctx, SelectTopicInput{UserID: "u1", BrandID: "b1", SourceTopicID: suggestions[0].ID})
	require.NoError(t, err)

	filter := domain.TopicListFilter{UserID: "u1", BrandID: "b1", Status: domain.TopicStatusSelected}
	before, err := topics.List(ctx, filter)
	require.NoError(t, err)
	require.Len(t, before, 1)

	require.NoError(t, topics.MarkUsed(ctx, selected.ID))

	after, err := topics.List(ctx, filter)
	require.NoError(t, err)
	assert.Empty(t, after)

	assert.ErrorIs(t, topics.MarkUsed(ctx, "missing"), repository.ErrNotFound)
}
