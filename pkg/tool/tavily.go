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

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilySearcher provides web search via the Tavily API. The AI summary is
// disabled; only raw page content is returned.
type TavilySearcher struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	maxResults int
}

// TavilyOption configures a TavilySearcher.
type TavilyOption func(*TavilySearcher)

// WithTavilyEndpoint overrides the API endpoint.
func WithTavilyEndpoint(url string) TavilyOption {
	return func(t *TavilySearcher) {
		t.endpoint = url
	}
}

// WithTavilyMaxResults sets the maximum search results to return.
func WithTavilyMaxResults(n int) TavilyOption {
	return func(t *TavilySearcher) {
		if n > 0 {
			t.maxResults = n
		}
	}
}

// NewTavilySearcher creates a Tavily-backed searcher.
func NewTavilySearcher(apiKey string, opts ...TavilyOption) *TavilySearcher {
	t := &TavilySearcher{
		apiKey:     apiKey,
		endpoint:   tavilyEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxResults: 5,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TavilySearcher) Name() string {
	return "tavily"
}

type tavilyRequest struct {
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search returns Tavily results for query.
func (t *TavilySearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if t.apiKey == "" {
		return nil, &adapter.Error{Provider: t.Name(), Kind: adapter.KindAuth, Err: fmt.Errorf("TAVILY_API_KEY not configured")}
	}

	payload := tavilyRequest{
		Query:         query,
		SearchDepth:   "advanced",
		IncludeAnswer: false,
		MaxResults:    t.maxResults,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, adapter.Classify(t.Name(), 0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, adapter.NewError(t.Name(), resp.StatusCode, fmt.Errorf("tavily API error: status %d", resp.StatusCode))
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, adapter.Malformed(t.Name(), "failed to decode response: %v", err)
	}

	results := make([]SearchResult, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return results, nil
}
