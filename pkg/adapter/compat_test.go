package adapter

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newLocalServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("failed to listen for httptest server: %v", err)
	}
	server := httptest.NewUnstartedServer(handler)
	server.Listener = listener
	server.Start()
	t.Cleanup(server.Close)
	return server
}

func TestCompatAdapterGenerate(t *testing.T) {
	server := newLocalServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		messages, _ := req["messages"].([]any)
		if len(messages) != 2 {
			t.Errorf("expected system and user messages, got %d", len(messages))
			return
		}
		if first, ok := messages[0].(map[string]any); !ok || first["role"] != "system" {
			t.Errorf("expected first message to be the persona")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"model":   req["model"],
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "Größe und Schönheit"}, "finish_reason": "stop"}},
			"usage":   map[string]any{"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16},
		})
	})

	a := NewCompatAdapter("deepseek", "test-key", server.URL, []string{"deepseek-chat"})
	resp, err := a.Generate(context.Background(), Request{
		Model:       "deepseek-chat",
		System:      "You are an editor.",
		Prompt:      "Edit this.",
		Temperature: Float(0.5),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Text != "Größe und Schönheit" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 16 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
}

func TestCompatAdapterClassifiesStatus(t *testing.T) {
	server := newLocalServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited", "type": "rate_limit", "code": "rate_limit"},
		})
	})

	a := NewCompatAdapter("openrouter", "test-key", server.URL, nil)
	_, err := a.Generate(context.Background(), Request{Model: "m", Prompt: "p"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if KindOf(err) != KindQuota {
		t.Fatalf("expected quota kind, got %s (%v)", KindOf(err), err)
	}
}

func TestProviderConstructorsRequireKeys(t *testing.T) {
	if _, err := NewDeepSeekAdapter(""); err == nil {
		t.Fatalf("expected deepseek key error")
	}
	if _, err := NewOpenRouterAdapter(""); err == nil {
		t.Fatalf("expected openrouter key error")
	}
	if _, err := NewAnthropicAdapter(""); err == nil {
		t.Fatalf("expected anthropic key error")
	}
	if _, err := NewOpenAIAdapter(""); err == nil {
		t.Fatalf("expected openai key error")
	}
	if _, err := NewGoogleAdapter(context.Background(), ""); err == nil {
		t.Fatalf("expected google key error")
	}
}
