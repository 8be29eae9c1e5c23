package notify

import (
	"fmt"
	"strings"

	"github.com/iago/content-orchestrator-back/internal/ai"
)

// SubmissionFailure builds the notification for a generation start that
// the job runner did not accept.
func SubmissionFailure(err error, billingURL string) Notification {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	if notification, ok := actionable(err, message, billingURL); ok {
		return notification
	}
	return Notification{
		Kind:    KindError,
		Title:   "Generation failed to start",
		Message: message,
	}
}

// SessionFailure builds the notification for a session that ended in error.
func SessionFailure(message, billingURL string) Notification {
	if strings.TrimSpace(message) == "" {
		message = "article generation failed"
	}
	if notification, ok := actionable(nil, message, billingURL); ok {
		return notification
	}
	return Notification{
		Kind:    KindError,
		Title:   "Article generation failed",
		Message: message,
	}
}

func SessionCompleted(completedArticles int) Notification {
	noun := "articles"
	if completedArticles == 1 {
		noun = "article"
	}
	return Notification{
		Kind:    KindSuccess,
		Title:   "Articles ready",
		Message: fmt.Sprintf("%d %s generated successfully.", completedArticles, noun),
	}
}

func actionable(err error, message, billingURL string) (Notification, bool) {
	lowered := strings.ToLower(message)
	switch {
	case ai.IsCreditsExhausted(err) || strings.Contains(lowered, "credit") || strings.Contains(lowered, "quota"):
		return Notification{
			Kind:        KindError,
			Title:       "Out of credits",
			Message:     "You don't have enough credits to generate these articles. Upgrade your plan or buy more credits.",
			ActionLabel: "Get credits",
			ActionURL:   billingURL,
		}, true
	case ai.IsRateLimited(err) || strings.Contains(lowered, "rate limit") || strings.Contains(lowered, "too many requests") || strings.Contains(lowered, "backpressure"):
		return Notification{
			Kind:        KindError,
			Title:       "Rate limit reached",
			Message:     "Too many generation requests right now. Wait a moment and try again, or upgrade for higher limits.",
			ActionLabel: "View plans",
			ActionURL:   billingURL,
		}, true
	default:
		return Notification{}, false
	}
}
