package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	openRouterProvider   = "openrouter"
	maxRetryAfter        = 10 * time.Second
	maxResponseBodyBytes = 4 << 20
)

type OpenRouterClientConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	SiteURL    string
	AppName    string
}

// OpenRouterClient is the alternative article writer. It speaks the OpenAI
// compatible chat completions dialect, so any gateway exposing it works.
type OpenRouterClient struct {
	apiKey     string
	endpoint   string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
	headers    http.Header
}

func NewOpenRouterClient(config OpenRouterClientConfig) *OpenRouterClient {
	baseURL := strings.TrimSuffix(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 2
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	appName := strings.TrimSpace(config.AppName)
	if appName == "" {
		appName = "content-orchestrator"
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")
	headers.Set("X-Title", appName)
	if siteURL := strings.TrimSpace(config.SiteURL); siteURL != "" {
		headers.Set("HTTP-Referer", siteURL)
	}

	return &OpenRouterClient{
		apiKey:     strings.TrimSpace(config.APIKey),
		endpoint:   baseURL + "/chat/completions",
		timeout:    config.Timeout,
		maxRetries: config.MaxRetries,
		httpClient: config.HTTPClient,
		headers:    headers,
	}
}

func (c *OpenRouterClient) Available() bool {
	return c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Gateways answer errors as {"error":{"message":"..."}} or {"error":"..."}.
type chatErrorResponse struct {
	Error json.RawMessage `json:"error"`
}

func (c *OpenRouterClient) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	if !c.Available() {
		return GenerateResult{}, ErrProviderUnavailable
	}
	if strings.TrimSpace(request.Model) == "" {
		return GenerateResult{}, errors.New("model is required")
	}
	if strings.TrimSpace(request.Input) == "" {
		return GenerateResult{}, errors.New("input is required")
	}

	body := chatCompletionRequest{
		Model:       request.Model,
		Temperature: request.Temperature,
		MaxTokens:   request.MaxOutputTokens,
	}
	if instructions := strings.TrimSpace(request.Instructions); instructions != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: instructions})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: request.Input})

	encoded, err := json.Marshal(body)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("marshal openrouter payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		result, retryAfter, callErr := c.complete(ctx, encoded, request.Model)
		if callErr == nil {
			return result, nil
		}
		lastErr = callErr
		if !isRetryableProviderError(callErr) || attempt == c.maxRetries {
			break
		}

		wait := time.Duration(350*(attempt+1)) * time.Millisecond
		if retryAfter > wait {
			wait = retryAfter
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return GenerateResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	return GenerateResult{}, lastErr
}

// complete performs one call. The returned duration is the server's
// Retry-After hint, zero when absent.
func (c *OpenRouterClient) complete(ctx context.Context, payload []byte, requestedModel string) (GenerateResult, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpRequest, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return GenerateResult{}, 0, fmt.Errorf("create openrouter request: %w", err)
	}
	httpRequest.Header = c.headers.Clone()
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return GenerateResult{}, 0, fmt.Errorf("openrouter timeout: %w", err)
		}
		return GenerateResult{}, 0, fmt.Errorf("openrouter transport error: %w", err)
	}
	defer httpResponse.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResponse.Body, maxResponseBodyBytes))
	if err != nil {
		return GenerateResult{}, 0, fmt.Errorf("read openrouter body: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return GenerateResult{}, parseRetryAfter(httpResponse.Header.Get("Retry-After")), &ProviderError{
			Provider:   openRouterProvider,
			StatusCode: httpResponse.StatusCode,
			Message:    truncateProviderMessage(chatErrorMessage(raw)),
		}
	}

	var decoded chatCompletionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return GenerateResult{}, 0, fmt.Errorf("decode openrouter response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return GenerateResult{}, 0, errors.New("openrouter response without choices")
	}
	text := chatContentText(decoded.Choices[0].Message.Content)
	if text == "" {
		return GenerateResult{}, 0, errors.New("openrouter response without text output")
	}

	return GenerateResult{
		Text:    text,
		ModelID: providerFirstNonEmpty(decoded.Model, requestedModel),
		Usage: TokenUsage{
			InputTokens:  decoded.Usage.PromptTokens,
			OutputTokens: decoded.Usage.CompletionTokens,
			TotalTokens:  decoded.Usage.TotalTokens,
		},
	}, 0, nil
}

// chatContentText accepts both a plain string and a list of text parts.
func chatContentText(content json.RawMessage) string {
	var plain string
	if err := json.Unmarshal(content, &plain); err == nil {
		return strings.TrimSpace(plain)
	}

	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &parts); err != nil {
		return ""
	}
	fragments := make([]string, 0, len(parts))
	for _, part := range parts {
		if text := strings.TrimSpace(part.Text); text != "" {
			fragments = append(fragments, text)
		}
	}
	return strings.Join(fragments, "\n")
}

func chatErrorMessage(body []byte) string {
	var envelope chatErrorResponse
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return string(body)
	}
	var text string
	if err := json.Unmarshal(envelope.Error, &text); err == nil {
		return text
	}
	var detailed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detailed); err == nil && detailed.Message != "" {
		return detailed.Message
	}
	return string(body)
}

func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0
	}
	wait := time.Duration(seconds) * time.Second
	if wait > maxRetryAfter {
		return maxRetryAfter
	}
	return wait
}
