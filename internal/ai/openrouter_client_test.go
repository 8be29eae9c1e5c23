package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const completionBody = `{
	"model":"openai/gpt-4.1-mini",
	"choices":[{"message":{"role":"assistant","content":"# Draft\n\nBody"}}],
	"usage":{"prompt_tokens":123,"completion_tokens":22,"total_tokens":145}
}`

func newTestOpenRouter(t *testing.T, handler http.HandlerFunc, maxRetries int) (*OpenRouterClient, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client := NewOpenRouterClient(OpenRouterClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL + "/",
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
		SiteURL:    "https://app.example.com",
	})
	return client, &calls
}

func articleRequest() GenerateRequest {
	return GenerateRequest{
		Model:           ModelStandard,
		Instructions:    "Write markdown only",
		Input:           "Write about composting",
		Temperature:     0.4,
		MaxOutputTokens: 500,
	}
}

func TestOpenRouterClientSendsChatCompletion(t *testing.T) {
	client, _ := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("HTTP-Referer") != "https://app.example.com" || r.Header.Get("X-Title") != "content-orchestrator" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var body chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(completionBody))
	}, 1)

	result, err := client.Generate(context.Background(), articleRequest())
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if result.Text != "# Draft\n\nBody" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.ModelID != "openai/gpt-4.1-mini" || result.Usage.TotalTokens != 145 {
		t.Fatalf("unexpected result metadata: %+v", result)
	}
}

func TestOpenRouterClientRetriesOnRateLimit(t *testing.T) {
	var attempts int32
	client, calls := newTestOpenRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
			return
		}
		_, _ = w.Write([]byte(completionBody))
	}, 2)

	if _, err := client.Generate(context.Background(), articleRequest()); err != nil {
		t.Fatalf("expected success after retry, got err=%v", err)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestOpenRouterClientParsesTextParts(t *testing.T) {
	client, _ := newTestOpenRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"model":"openai/gpt-4.1-mini",
			"choices":[{"message":{"role":"assistant","content":[{"type":"text","text":"line 1"},{"type":"text","text":" "},{"type":"text","text":"line 2"}]}}]
		}`))
	}, 1)

	result, err := client.Generate(context.Background(), articleRequest())
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if result.Text != "line 1\nline 2" {
		t.Fatalf("unexpected parsed text: %q", result.Text)
	}
}

func TestOpenRouterClientUnavailableWithoutKey(t *testing.T) {
	client := NewOpenRouterClient(OpenRouterClientConfig{})
	if client.Available() {
		t.Fatalf("expected client without key to be unavailable")
	}
	if _, err := client.Generate(context.Background(), articleRequest()); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestOpenRouterClientDoesNotRetryExhaustedCredits(t *testing.T) {
	client, calls := newTestOpenRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"Insufficient credits","code":402}}`))
	}, 3)

	_, err := client.Generate(context.Background(), GenerateRequest{Model: ModelPremium, Input: "test"})
	if !IsCreditsExhausted(err) {
		t.Fatalf("expected credits error, got %v", err)
	}
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) || providerErr.Message != "Insufficient credits" {
		t.Fatalf("expected decoded provider message, got %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("expected a single call, got %d", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := map[string]time.Duration{
		"":    0,
		"abc": 0,
		"-1":  0,
		"2":   2 * time.Second,
		"600": maxRetryAfter,
	}
	for value, want := range cases {
		if got := parseRetryAfter(value); got != want {
			t.Fatalf("parseRetryAfter(%q) = %v, want %v", value, got, want)
		}
	}
}
