package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrProviderUnavailable = errors.New("ai provider unavailable")

type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type GenerateRequest struct {
	Model           string
	Instructions    string
	Input           string
	Temperature     float64
	MaxOutputTokens int
}

type GenerateResult struct {
	Text    string
	ModelID string
	Usage   TokenUsage
}

type TextGenerator interface {
	Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error)
	Available() bool
}

// ProviderError is a non-2xx answer from a model provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Message)
}

var (
	creditPhrases    = []string{"insufficient credits", "insufficient_quota", "credits exhausted", "out of credits"}
	rateLimitPhrases = []string{"rate limit", "too many requests"}
	transientPhrases = []string{"timeout", "tempor"}
)

// classify reports the provider status of err, or zero, plus whether its
// message mentions any of phrases.
func classify(err error, phrases []string) (int, bool) {
	status := 0
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		status = providerErr.StatusCode
	}
	message := strings.ToLower(err.Error())
	for _, phrase := range phrases {
		if strings.Contains(message, phrase) {
			return status, true
		}
	}
	return status, false
}

// IsCreditsExhausted reports whether err means the account ran out of
// credits or quota. Retrying such errors is pointless.
func IsCreditsExhausted(err error) bool {
	if err == nil {
		return false
	}
	status, mentioned := classify(err, creditPhrases)
	return status == http.StatusPaymentRequired || mentioned
}

func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	status, mentioned := classify(err, rateLimitPhrases)
	return status == http.StatusTooManyRequests || mentioned
}

func isRetryableProviderError(err error) bool {
	if err == nil || IsCreditsExhausted(err) {
		return false
	}
	status, mentioned := classify(err, transientPhrases)
	if status != 0 {
		return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	}
	return mentioned
}

func providerFirstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

const maxProviderMessage = 700

func truncateProviderMessage(message string) string {
	message = strings.TrimSpace(message)
	if len(message) > maxProviderMessage {
		return message[:maxProviderMessage]
	}
	return message
}
