package notify

import (
	"errors"
	"net/http"
	"testing"

	"github.com/iago/content-orchestrator-back/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedDropsOldestWhenFull(t *testing.T) {
	feed := NewFeed(2)
	feed.Push(Notification{Message: "one"})
	feed.Push(Notification{Message: "two"})
	feed.Push(Notification{Message: "three"})

	drained := feed.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "two", drained[0].Message)
	assert.Equal(t, "three", drained[1].Message)
	assert.NotEmpty(t, drained[0].ID)
	assert.Zero(t, feed.Len())
}

func TestSubmissionFailureCreditsIsActionable(t *testing.T) {
	err := &ai.ProviderError{Provider: "openai", StatusCode: http.StatusPaymentRequired, Message: "payment required"}
	notification := SubmissionFailure(err, "/billing")

	assert.Equal(t, KindError, notification.Kind)
	assert.Equal(t, "Out of credits", notification.Title)
	assert.Equal(t, "/billing", notification.ActionURL)
}

func TestSubmissionFailureRateLimitIsActionable(t *testing.T) {
	notification := SubmissionFailure(errors.New("rate limit exceeded"), "/billing")
	assert.Equal(t, "Rate limit reached", notification.Title)
	assert.Equal(t, "/billing", notification.ActionURL)
}

func TestSubmissionFailureGenericKeepsMessage(t *testing.T) {
	notification := SubmissionFailure(errors.New("connection refused"), "/billing")
	assert.Equal(t, "connection refused", notification.Message)
	assert.Empty(t, notification.ActionURL)
}

func TestSessionCompletedNamesCount(t *testing.T) {
	assert.Equal(t, "3 articles generated successfully.", SessionCompleted(3).Message)
	assert.Equal(t, "1 article generated successfully.", SessionCompleted(1).Message)
}
