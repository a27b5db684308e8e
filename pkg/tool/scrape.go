package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zen-systems/crewforge/pkg/adapter"
	"golang.org/x/net/html"
)

const defaultScrapeLimit = 8000

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)
)

// ScrapeTool fetches a page and returns its visible text. A query that is
// not a URL is first resolved through the searcher and the top hit is read.
type ScrapeTool struct {
	searcher   Searcher
	httpClient *http.Client
	maxChars   int
}

// NewScrapeTool creates a scrape tool. searcher may be nil when every
// query is a URL.
func NewScrapeTool(searcher Searcher) *ScrapeTool {
	return &ScrapeTool{
		searcher:   searcher,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		maxChars:   defaultScrapeLimit,
	}
}

func (t *ScrapeTool) Name() string {
	return "web_scrape"
}

func (t *ScrapeTool) Run(ctx context.Context, query string) (string, error) {
	target := strings.TrimSpace(query)
	if !isURL(target) {
		if t.searcher == nil {
			return "", fmt.Errorf("web_scrape: %q is not a URL and no searcher is configured", target)
		}
		results, err := t.searcher.Search(ctx, target)
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			return "No page found to read.", nil
		}
		target = results[0].URL
	}

	text, err := t.Fetch(ctx, target)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Source: %s\n\n%s", target, text), nil
}

// Fetch downloads url and extracts its visible text.
func (t *ScrapeTool) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; crewforge/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", adapter.Classify(t.Name(), 0, fmt.Errorf("failed to fetch %s: %w", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", adapter.NewError(t.Name(), resp.StatusCode, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var text string
	if strings.Contains(resp.Header.Get("Content-Type"), "text/plain") {
		text = string(body)
	} else {
		text, err = ExtractText(string(body))
		if err != nil {
			return "", adapter.Malformed(t.Name(), "parse %s: %v", url, err)
		}
	}
	return truncate(text, t.maxChars), nil
}

// ExtractText returns the readable text of an HTML document, skipping
// scripts, styles and page chrome.
func ExtractText(document string) (string, error) {
	doc, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "header":
				return
			case "p", "div", "section", "article", "h1", "h2", "h3", "h4", "li", "br", "title":
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	text := multiSpacePattern.ReplaceAllString(sb.String(), " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = multiNewlinePattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n\n[...truncated...]"
}
