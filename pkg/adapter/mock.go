package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// MockAdapter returns deterministic responses for local runs and tests.
type MockAdapter struct {
	responses       map[string]string
	defaultResponse string
	Usage           *Usage
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined responses.
// Keys are matched against the prompt first, then as a prompt substring,
// longest key first.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockAdapter{responses: responses, defaultResponse: defaultResponse}
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return []string{"mock-1"}
}

// Generate returns a deterministic response for the prompt.
func (a *MockAdapter) Generate(_ context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = "mock-1"
	}
	if response, ok := a.responses[req.Prompt]; ok {
		return &Response{Text: response, Adapter: a.Name(), Model: model, Usage: a.Usage}, nil
	}
	for _, key := range a.substringKeys() {
		if strings.Contains(req.Prompt, key) {
			return &Response{Text: a.responses[key], Adapter: a.Name(), Model: model, Usage: a.Usage}, nil
		}
	}
	content := fmt.Sprintf("%s\n%s", a.defaultResponse, req.Prompt)
	return &Response{Text: content, Adapter: a.Name(), Model: model, Usage: a.Usage}, nil
}

// substringKeys orders the non-empty keys longest first, ties by name.
func (a *MockAdapter) substringKeys() []string {
	keys := make([]string, 0, len(a.responses))
	for key := range a.responses {
		if key != "" {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
