package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIClientConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIClient writes through the official SDK's chat completions API.
type OpenAIClient struct {
	client    openai.Client
	available bool
}

func NewOpenAIClient(config OpenAIClientConfig) *OpenAIClient {
	apiKey := strings.TrimSpace(config.APIKey)
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(config.Timeout),
		option.WithMaxRetries(config.MaxRetries),
	}
	if baseURL := strings.TrimSpace(config.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{
		client:    openai.NewClient(opts...),
		available: apiKey != "",
	}
}

func (c *OpenAIClient) Available() bool {
	return c.available
}

func (c *OpenAIClient) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	if !c.Available() {
		return GenerateResult{}, ErrProviderUnavailable
	}
	if strings.TrimSpace(request.Model) == "" {
		return GenerateResult{}, errors.New("model is required")
	}
	if strings.TrimSpace(request.Input) == "" {
		return GenerateResult{}, errors.New("input is required")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if instructions := strings.TrimSpace(request.Instructions); instructions != "" {
		messages = append(messages, openai.SystemMessage(instructions))
	}
	messages = append(messages, openai.UserMessage(request.Input))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(request.Model),
		Messages:    messages,
		Temperature: openai.Float(request.Temperature),
	}
	if request.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(request.MaxOutputTokens))
	}

	response, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return GenerateResult{}, &ProviderError{
				Provider:   "openai",
				StatusCode: apiErr.StatusCode,
				Message:    truncateProviderMessage(apiErr.Error()),
			}
		}
		return GenerateResult{}, fmt.Errorf("openai request: %w", err)
	}
	if len(response.Choices) == 0 {
		return GenerateResult{}, errors.New("openai: empty choices")
	}

	text := strings.TrimSpace(response.Choices[0].Message.Content)
	if text == "" {
		return GenerateResult{}, errors.New("openai response without text output")
	}

	return GenerateResult{
		Text:    text,
		ModelID: providerFirstNonEmpty(response.Model, request.Model),
		Usage: TokenUsage{
			InputTokens:  int(response.Usage.PromptTokens),
			OutputTokens: int(response.Usage.CompletionTokens),
			TotalTokens:  int(response.Usage.TotalTokens),
		},
	}, nil
}
