package tools

import (
	"context"
	"strings"
	"testing"
)

const resultsPage = `<html><body>
<div class="results">
  <div class="result">
    <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fblog%2F&amp;rut=abc">The Go Blog</a>
    <div class="result__snippet">News from the Go project.</div>
  </div>
  <div class="result">
    <a class="result__a" href="https://pkg.go.dev/">Go Packages</a>
    <div class="result__snippet">Package documentation.</div>
  </div>
  <div class="result">
    <span>malformed entry without a link</span>
  </div>
</div>
</body></html>`

func TestParseResults(t *testing.T) {
	results, err := parseResults(strings.NewReader(resultsPage))
	if err != nil {
		t.Fatalf("parseResults failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	first := results[0]
	if first.Title != "The Go Blog" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.URL != "https://go.dev/blog/" {
		t.Errorf("expected redirect to be unwrapped, got %q", first.URL)
	}
	if first.Content != "News from the Go project." {
		t.Errorf("unexpected snippet: %q", first.Content)
	}

	if results[1].URL != "https://pkg.go.dev/" {
		t.Errorf("expected direct url kept, got %q", results[1].URL)
	}
}

func TestParseResults_EmptyPage(t *testing.T) {
	results, err := parseResults(strings.NewReader("<html><body></body></html>"))
	if err != nil {
		t.Fatalf("parseResults failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestResolveRedirect(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&rut=x", "https://example.com/page"},
		{"https://example.com/direct", "https://example.com/direct"},
		{"//duckduckgo.com/l/?other=1", "//duckduckgo.com/l/?other=1"},
		{"%%%", "%%%"},
	}

	for _, tc := range cases {
		if got := resolveRedirect(tc.in); got != tc.want {
			t.Errorf("resolveRedirect(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSearchTool_MissingQuery(t *testing.T) {
	tool := NewSearchTool(5, false)
	if _, err := tool.Execute(context.Background(), map[string]any{}, Context{}); err == nil {
		t.Error("expected an error for a missing query")
	}
}
