package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rahul/taskpilot/internal/store"
	"github.com/rahul/taskpilot/internal/tools"
)

func testFindings() []searchFindings {
	return []searchFindings{
		{
			Query: "AI coding tools",
			Results: []tools.SearchResult{
				{Title: "Tool A", URL: "https://a.example", Content: "Details about tool A."},
				{Title: "Tool B", URL: "https://b.example", Content: "Details about tool B."},
				{Title: "Tool C", URL: "https://c.example", Content: "Details about tool C."},
				{Title: "Tool D", URL: "https://d.example", Content: "Details about tool D."},
			},
		},
	}
}

func TestEnrichEmailBody_NoFindingsReturnsUnchanged(t *testing.T) {
	model := &fakeModel{response: "never used"}
	e := newTestExecutor(tools.NewRegistry(), nil, model)

	body := "Hi [Manager's Name], here is my update."
	got := e.enrichEmailBody(context.Background(), body, nil, nil, nil, "goal")

	if got != body {
		t.Errorf("expected unchanged body, got %q", got)
	}
	if model.calls != 0 {
		t.Errorf("expected no model call, got %d", model.calls)
	}
}

func TestEnrichEmailBody_UsesModelRewrite(t *testing.T) {
	rewrite := "Hi Manager,\n\nThe research surfaced three strong candidates, summarized below with sources linked at the end of each section."
	model := &fakeModel{response: rewrite}
	e := newTestExecutor(tools.NewRegistry(), nil, model)

	got := e.enrichEmailBody(context.Background(), "Hi [Manager's Name]", testFindings(), nil, nil, "goal")

	if got != rewrite {
		t.Errorf("expected model rewrite, got %q", got)
	}
	if model.calls != 1 {
		t.Errorf("expected one model call, got %d", model.calls)
	}
}

func TestEnrichEmailBody_ShortRewriteFallsBack(t *testing.T) {
	model := &fakeModel{response: "ok"}
	e := newTestExecutor(tools.NewRegistry(), nil, model)

	got := e.enrichEmailBody(context.Background(), "Hi [Manager's Name]", testFindings(), nil, nil, "goal")

	if got == "ok" {
		t.Fatal("expected a too-short rewrite to be discarded")
	}
	if !strings.Contains(got, "Research Findings") {
		t.Errorf("expected fallback findings section, got %q", got)
	}
}

func TestEnrichEmailBody_ModelFailureFallsBack(t *testing.T) {
	model := &fakeModel{err: errors.New("model unavailable")}
	e := newTestExecutor(tools.NewRegistry(), nil, model)

	got := e.enrichEmailBody(context.Background(), "Hi [Manager's Name]", testFindings(), nil, nil, "goal")

	if strings.Contains(got, "[Manager's Name]") {
		t.Errorf("expected placeholder to be substituted, got %q", got)
	}
	if !strings.Contains(got, "https://a.example") {
		t.Errorf("expected findings urls in fallback body, got %q", got)
	}
}

func TestEnrichSimple(t *testing.T) {
	body := "Dear [Manager's Name],\n\nSee findings.\n\nBest,\n[Your Name]"
	got := enrichSimple(body, testFindings())

	if strings.Contains(got, "[Manager's Name]") || strings.Contains(got, "[Your Name]") {
		t.Errorf("expected all placeholders substituted, got %q", got)
	}
	if !strings.Contains(got, "Dear Manager,") {
		t.Errorf("expected manager substitution, got %q", got)
	}
	// Only the first three results per query are appended.
	if !strings.Contains(got, "Tool C") {
		t.Errorf("expected third result, got %q", got)
	}
	if strings.Contains(got, "Tool D") {
		t.Errorf("expected fourth result to be dropped, got %q", got)
	}
}

func TestEnrichSimple_NoFindings(t *testing.T) {
	got := enrichSimple("Hi [Manager's Name]", nil)
	if got != "Hi Manager" {
		t.Errorf("expected plain substitution, got %q", got)
	}
}

func TestFormatSearchContext_CollectsLinks(t *testing.T) {
	ctx, urls := formatSearchContext(testFindings())

	if !strings.Contains(ctx, `"AI coding tools"`) {
		t.Errorf("expected query header, got %q", ctx)
	}
	if len(urls) != 4 {
		t.Fatalf("expected 4 links, got %d", len(urls))
	}
	if urls[0] != "[Tool A](https://a.example)" {
		t.Errorf("unexpected link format: %q", urls[0])
	}
}

func TestSearchFindingsBefore_OnlyEarlierSteps(t *testing.T) {
	steps := []store.Step{
		{ID: 3, Tool: "search"},
		{ID: 1, Tool: "search"},
		{ID: 2, Tool: "email"},
	}
	results := map[int]any{
		1: &tools.SearchOutput{Query: "early", Result: tools.SearchResultSet{Results: []tools.SearchResult{{Title: "t"}}}},
		3: &tools.SearchOutput{Query: "late", Result: tools.SearchResultSet{Results: []tools.SearchResult{{Title: "t"}}}},
	}

	findings := searchFindingsBefore(steps, results, 2)
	if len(findings) != 1 || findings[0].Query != "early" {
		t.Errorf("expected only the earlier search, got %+v", findings)
	}
}

func TestCalendarEventsBefore(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	steps := []store.Step{
		{ID: 1, Tool: "calendar"},
		{ID: 2, Tool: "email"},
	}
	results := map[int]any{
		1: &tools.CalendarOutput{Success: true, Event: tools.CalendarEvent{Title: "Sync", StartTime: start}},
	}

	events := calendarEventsBefore(steps, results, 2)
	if len(events) != 1 || events[0].Title != "Sync" {
		t.Errorf("expected the prior calendar event, got %+v", events)
	}
}
