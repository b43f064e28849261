package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

const (
	searchEndpoint  = "https://html.duckduckgo.com/html/"
	defaultAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	maxContentChars = 2000
	maxContentFetch = 3
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchResultSet wraps the hits for a single query.
type SearchResultSet struct {
	Results []SearchResult `json:"results"`
}

// SearchOutput is the search tool's result shape: the query that was run
// plus the hits it produced.
type SearchOutput struct {
	Query  string          `json:"query"`
	Result SearchResultSet `json:"result"`
}

// SearchTool queries DuckDuckGo's HTML endpoint and optionally fetches the
// top pages to extract their readable content.
type SearchTool struct {
	Client       *http.Client
	UserAgent    string
	TopK         int
	FetchContent bool

	sanitizer *bluemonday.Policy
}

func NewSearchTool(topK int, fetchContent bool) *SearchTool {
	return &SearchTool{
		Client:       &http.Client{Timeout: 30 * time.Second},
		UserAgent:    defaultAgent,
		TopK:         topK,
		FetchContent: fetchContent,
		sanitizer:    bluemonday.StrictPolicy(),
	}
}

func (s *SearchTool) Name() string {
	return "search"
}

func (s *SearchTool) Description() string {
	return "Search the web for real-time information and return titles, URLs and content snippets."
}

func (s *SearchTool) Execute(ctx context.Context, args map[string]any, tc Context) (any, error) {
	query, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}

	topK := s.TopK
	if k, ok := intArg(args, "topK"); ok && k > 0 {
		topK = k
	}

	results, err := s.search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if s.FetchContent {
		for i := range results {
			if i >= maxContentFetch {
				break
			}
			content, err := s.fetchPageContent(ctx, results[i].URL)
			if err != nil {
				continue // keep the snippet
			}
			results[i].Content = content
		}
	}

	return &SearchOutput{Query: query, Result: SearchResultSet{Results: results}}, nil
}

func (s *SearchTool) search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	results, err := parseResults(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// parseResults extracts title, target URL and snippet from a DuckDuckGo
// HTML results page.
func parseResults(r io.Reader) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	doc.Find(".result").Each(func(i int, sel *goquery.Selection) {
		link := sel.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		results = append(results, SearchResult{
			Title:   strings.TrimSpace(link.Text()),
			URL:     resolveRedirect(href),
			Content: strings.TrimSpace(sel.Find(".result__snippet").Text()),
		})
	})
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<target> redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Host == "" {
		return "https:" + href
	}
	return href
}

// fetchPageContent downloads a result page and extracts its main content as
// clean, sanitized text.
func (s *SearchTool) fetchPageContent(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status code %d", resp.StatusCode)
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse article: %v", err)
	}

	content := s.sanitizer.Sanitize(article.TextContent)
	content = strings.TrimSpace(content)
	if len(content) > maxContentChars {
		content = content[:maxContentChars] + " ..."
	}
	return content, nil
}
