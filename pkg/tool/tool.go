// Package tool provides the external lookups a role may call while a task
// is being prepared: web search, page scraping and image generation.
package tool

import (
	"context"
	"fmt"
	"strings"
)

// SearchResult is one ranked hit from a search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher queries a web search provider.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Tool is a named lookup a role can carry. Run returns Markdown that is
// appended to the task prompt.
type Tool interface {
	Name() string
	Run(ctx context.Context, query string) (string, error)
}

// ImageGenerator produces image bytes from a text prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, project string) ([]byte, error)
}

// FormatResults renders search results as a numbered Markdown list.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. [%s](%s)\n", i+1, r.Title, r.URL)
		if snippet := strings.TrimSpace(r.Snippet); snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", snippet)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// SearchTool exposes a Searcher as the "web_search" tool.
type SearchTool struct {
	searcher Searcher
}

// NewSearchTool wraps s.
func NewSearchTool(s Searcher) *SearchTool {
	return &SearchTool{searcher: s}
}

func (t *SearchTool) Name() string {
	return "web_search"
}

func (t *SearchTool) Run(ctx context.Context, query string) (string, error) {
	results, err := t.searcher.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return FormatResults(results), nil
}
