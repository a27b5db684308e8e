package adapter

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
)

const (
	deepseekBaseURL   = "https://api.deepseek.com/v1"
	openrouterBaseURL = "https://openrouter.ai/api/v1"
)

// CompatAdapter talks to OpenAI-compatible chat endpoints such as
// DeepSeek and OpenRouter.
type CompatAdapter struct {
	name   string
	models []string
	client *goopenai.Client
}

// NewDeepSeekAdapter creates a new DeepSeek adapter.
func NewDeepSeekAdapter(apiKey string) (*CompatAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek API key is required")
	}
	return NewCompatAdapter("deepseek", apiKey, deepseekBaseURL, []string{
		"deepseek-chat",
		"deepseek-reasoner",
	}), nil
}

// NewOpenRouterAdapter creates a new OpenRouter adapter.
func NewOpenRouterAdapter(apiKey string) (*CompatAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	return NewCompatAdapter("openrouter", apiKey, openrouterBaseURL, []string{
		"openai/gpt-4o",
		"google/gemini-2.5-flash",
		"anthropic/claude-sonnet-4",
	}), nil
}

// NewCompatAdapter creates an adapter for any OpenAI-compatible base URL.
func NewCompatAdapter(name, apiKey, baseURL string, models []string) *CompatAdapter {
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &CompatAdapter{
		name:   name,
		models: models,
		client: goopenai.NewClientWithConfig(cfg),
	}
}

// Name returns the adapter identifier.
func (a *CompatAdapter) Name() string {
	return a.name
}

// Models returns the list of supported models.
func (a *CompatAdapter) Models() []string {
	return a.models
}

// Generate sends the request as a chat completion and returns the first choice.
func (a *CompatAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := goopenai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.maxTokens(),
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}

	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, Classify(a.name, compatStatus(err), err)
	}

	if len(resp.Choices) == 0 {
		return nil, Malformed(a.name, "%s returned no choices", a.name)
	}

	return &Response{
		Text:    resp.Choices[0].Message.Content,
		Adapter: a.name,
		Model:   req.Model,
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func compatStatus(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
