package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/repository"
)

func TestResearchNormalizesModelTopics(t *testing.T) {
	store := repository.NewMemoryStore()
	topics := NewTopicsService(store, nil, nil)
	generator := &scriptedGenerator{available: true, text: "```json\n" + `{"topics":[
		{"title":"Composting at home","keyword_focus":"compost, home compost","search_intent":"Informational","outline":[{"heading":"Bins"},{"heading":"Greens and browns"}]},
		{"title":"Best compost bins","keyword_focus":["compost bin"],"search_intent":"commercial","outline":["Criteria"]},
		{"title":"","keyword_focus":"ignored"}
	]}` + "\n```"}
	research := NewResearchService(ResearchDependencies{Client: generator, Topics: topics})

	output, err := research.Research(context.Background(), ResearchInput{UserID: "u1", BrandID: "b1", Seed: "composting", Count: 5})
	require.NoError(t, err)
	assert.False(t, output.UsedFallback)
	require.Len(t, output.Topics, 2)

	first := output.Topics[0]
	assert.Equal(t, []string{"compost", "home compost"}, first.Keywords)
	assert.Equal(t, domain.IntentInformational, first.Intent)
	assert.Equal(t, []string{"Bins", "Greens and browns"}, first.Outline)
	assert.Equal(t, []string{"Criteria"}, output.Topics[1].Outline)

	// The same answer again only produces duplicates.
	again, err := research.Research(context.Background(), ResearchInput{UserID: "u1", BrandID: "b1", Seed: "composting", Count: 5})
	require.NoError(t, err)
	assert.Empty(t, again.Topics)
	assert.Equal(t, 2, again.Skipped)
	assert.Contains(t, generator.prompts[1], "Composting at home")
}

func TestResearchFallbackWithoutModel(t *testing.T) {
	topics := NewTopicsService(repository.NewMemoryStore(), nil, nil)
	research := NewResearchService(ResearchDependencies{Topics: topics})

	output, err := research.Research(context.Background(), ResearchInput{BrandID: "b1", Seed: "remote work", Count: 3})
	require.NoError(t, err)
	assert.True(t, output.UsedFallback)
	require.Len(t, output.Topics, 3)
	assert.Equal(t, "What is remote work? A practical introduction", output.Topics[0].Title)

	_, err = research.Research(context.Background(), ResearchInput{BrandID: "b1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
