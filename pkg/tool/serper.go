package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zen-systems/crewforge/pkg/adapter"
)

const serperEndpoint = "https://google.serper.dev/search"

// SerperSearcher queries Google results through serper.dev.
type SerperSearcher struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	maxResults int
}

// SerperOption configures a SerperSearcher.
type SerperOption func(*SerperSearcher)

// WithSerperEndpoint overrides the API endpoint.
func WithSerperEndpoint(url string) SerperOption {
	return func(s *SerperSearcher) {
		s.endpoint = url
	}
}

// WithSerperMaxResults sets the number of organic results requested.
func WithSerperMaxResults(n int) SerperOption {
	return func(s *SerperSearcher) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// NewSerperSearcher creates a searcher using apiKey.
func NewSerperSearcher(apiKey string, opts ...SerperOption) *SerperSearcher {
	s := &SerperSearcher{
		apiKey:     apiKey,
		endpoint:   serperEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxResults: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SerperSearcher) Name() string {
	return "serper"
}

type serperRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic"`
}

// Search returns the organic results for query, in provider rank order.
func (s *SerperSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if s.apiKey == "" {
		return nil, &adapter.Error{Provider: s.Name(), Kind: adapter.KindAuth, Err: fmt.Errorf("SERPER_API_KEY not configured")}
	}

	body, err := json.Marshal(serperRequest{Query: query, Num: s.maxResults})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, adapter.Classify(s.Name(), 0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, adapter.NewError(s.Name(), resp.StatusCode, fmt.Errorf("serper API error: status %d", resp.StatusCode))
	}

	var out serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, adapter.Malformed(s.Name(), "failed to decode response: %v", err)
	}

	results := make([]SearchResult, 0, len(out.Organic))
	for _, r := range out.Organic {
		results = append(results, SearchResult{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return results, nil
}
