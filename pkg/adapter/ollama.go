package adapter

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaHost = "http://localhost:11434"

// OllamaAdapter runs prompts against a local Ollama server.
type OllamaAdapter struct {
	serverURL string
	models    []string
}

// NewOllamaAdapter creates an adapter for the Ollama server at serverURL.
func NewOllamaAdapter(serverURL string, models ...string) *OllamaAdapter {
	if serverURL == "" {
		serverURL = defaultOllamaHost
	}
	if len(models) == 0 {
		models = []string{"llama3.1", "mistral"}
	}
	return &OllamaAdapter{serverURL: serverURL, models: models}
}

// Name returns the adapter identifier.
func (a *OllamaAdapter) Name() string {
	return "ollama"
}

// Models returns the configured local models.
func (a *OllamaAdapter) Models() []string {
	return a.models
}

// Generate sends the request to the local model.
func (a *OllamaAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	llm, err := ollama.New(ollama.WithModel(req.Model), ollama.WithServerURL(a.serverURL))
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}

	messages := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	opts := []llms.CallOption{llms.WithMaxTokens(req.maxTokens())}
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	}

	resp, err := llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, Classify(a.Name(), 0, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, Malformed(a.Name(), "ollama returned no choices")
	}

	return &Response{
		Text:    resp.Choices[0].Content,
		Adapter: a.Name(),
		Model:   req.Model,
	}, nil
}
