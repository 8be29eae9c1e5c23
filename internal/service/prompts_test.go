package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iago/content-orchestrator-back/internal/ai"
)

func TestExtractJSONToleratesFencesAndProse(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"topics\":[]}\n```":          `{"topics":[]}`,
		"Here you go: {\"topics\":[]} Enjoy!":    `{"topics":[]}`,
		"  {\"topics\":[{\"title\":\"a\"}]}  \n": `{"topics":[{"title":"a"}]}`,
	}
	for input, want := range cases {
		got, err := extractJSON(input)
		require.NoError(t, err, input)
		assert.JSONEq(t, want, string(got))
	}

	_, err := extractJSON("no json here")
	assert.Error(t, err)
	_, err = extractJSON("   ")
	assert.Error(t, err)
}

func TestProfileModelsSkipsDuplicateFallback(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, profileModels(ai.ModelProfile{PrimaryModel: "a", FallbackModel: "b"}))
	assert.Equal(t, []string{"a"}, profileModels(ai.ModelProfile{PrimaryModel: "a", FallbackModel: "a"}))
	assert.Equal(t, []string{"a"}, profileModels(ai.ModelProfile{PrimaryModel: "a", FallbackModel: " "}))
}
