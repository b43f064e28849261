package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rahul/taskpilot/internal/store"
	"github.com/rahul/taskpilot/internal/tools"
	"github.com/tmc/langchaingo/llms"
)

const (
	enrichTemperature = 0.7
	enrichMaxTokens   = 2048

	// Model output shorter than this is treated as a failed rewrite.
	minEnrichedLength = 50

	// How many results per query the deterministic fallback appends.
	fallbackResultsPerQuery = 3
)

// searchFindings are the recorded results of one prior search step.
type searchFindings struct {
	Query   string
	Results []tools.SearchResult
}

// enrichEmailBody rewrites an email template using results of earlier steps.
// It never fails the caller: a model failure or an implausibly short rewrite
// falls back to a deterministic text splice, and with no prior results the
// original body is returned unchanged.
func (e *Executor) enrichEmailBody(ctx context.Context, body string, searches []searchFindings, calendars []tools.CalendarEvent, attachmentNames []string, goal string) string {
	if len(searches) == 0 && len(calendars) == 0 {
		return body
	}

	searchContext, urls := formatSearchContext(searches)
	calendarContext := formatCalendarContext(calendars)
	attachmentsLine := "(none)"
	if len(attachmentNames) > 0 {
		attachmentsLine = strings.Join(attachmentNames, "\n")
	}

	prompt := fmt.Sprintf(e.Prompts.GetEnrichmentPrompt(),
		body, goal, searchContext, calendarContext, strings.Join(urls, "\n"), attachmentsLine)

	enriched, err := llms.GenerateFromSinglePrompt(ctx, e.Model, prompt,
		llms.WithTemperature(enrichTemperature),
		llms.WithMaxTokens(enrichMaxTokens),
	)
	if err == nil && e.Logger != nil {
		e.Logger.LogLLM("", "", prompt, enriched)
	}

	enriched = strings.TrimSpace(enriched)
	if err != nil || len(enriched) < minEnrichedLength {
		return enrichSimple(body, searches)
	}
	return enriched
}

// enrichSimple is the deterministic fallback: placeholder substitution plus
// a mechanically appended list of findings. It guarantees the email never
// carries unresolved template placeholders even under full model failure.
func enrichSimple(body string, searches []searchFindings) string {
	enriched := strings.ReplaceAll(body, "[Manager's Name]", "Manager")
	enriched = strings.ReplaceAll(enriched, "[Your Name]", "")

	if len(searches) == 0 {
		return enriched
	}

	var sb strings.Builder
	sb.WriteString(enriched)
	sb.WriteString("\n\n---\nResearch Findings:\n\n")

	for _, s := range searches {
		sb.WriteString(fmt.Sprintf("%s:\n", s.Query))
		for i, r := range s.Results {
			if i >= fallbackResultsPerQuery {
				break
			}
			title := r.Title
			if title == "" {
				title = "Link"
			}
			sb.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, title, r.URL))
			if r.Content != "" {
				content := r.Content
				if len(content) > 200 {
					content = content[:200] + "..."
				}
				sb.WriteString("   " + content + "\n")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatSearchContext(searches []searchFindings) (string, []string) {
	var sb strings.Builder
	var urls []string

	for i, s := range searches {
		sb.WriteString(fmt.Sprintf("\n### Search Query %d: %q\n\n", i+1, s.Query))
		for j, r := range s.Results {
			title := r.Title
			if title == "" {
				title = "Untitled"
			}
			content := r.Content
			if content == "" {
				content = "No content available"
			}
			sb.WriteString(fmt.Sprintf("Source %d:\nTitle: %s\nURL: %s\nContent: %s\n---\n\n", j+1, title, r.URL, content))
			if r.URL != "" {
				urls = append(urls, fmt.Sprintf("[%s](%s)", title, r.URL))
			}
		}
	}

	return sb.String(), urls
}

func formatCalendarContext(calendars []tools.CalendarEvent) string {
	var sb strings.Builder
	for _, ev := range calendars {
		sb.WriteString(fmt.Sprintf("\n- Created event: %q at %s\n", ev.Title, ev.StartTime.Format("2006-01-02 15:04")))
	}
	return sb.String()
}

// searchFindingsBefore collects recorded search results of steps preceding
// the current one, in ascending id order.
func searchFindingsBefore(steps []store.Step, toolResults map[int]any, currentID int) []searchFindings {
	var findings []searchFindings
	for _, step := range sortedByID(steps) {
		if step.ID >= currentID || step.Tool != "search" {
			continue
		}
		out, ok := toolResults[step.ID].(*tools.SearchOutput)
		if !ok || len(out.Result.Results) == 0 {
			continue
		}
		findings = append(findings, searchFindings{Query: out.Query, Results: out.Result.Results})
	}
	return findings
}

// sortedByID returns a copy of the steps ordered by ascending id.
func sortedByID(steps []store.Step) []store.Step {
	out := make([]store.Step, len(steps))
	copy(out, steps)
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// calendarEventsBefore collects recorded calendar events of steps preceding
// the current one, in ascending id order.
func calendarEventsBefore(steps []store.Step, toolResults map[int]any, currentID int) []tools.CalendarEvent {
	var events []tools.CalendarEvent
	for _, step := range sortedByID(steps) {
		if step.ID >= currentID || step.Tool != "calendar" {
			continue
		}
		out, ok := toolResults[step.ID].(*tools.CalendarOutput)
		if !ok {
			continue
		}
		events = append(events, out.Event)
	}
	return events
}
