package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rahul/taskpilot/internal/store"
)

type memEventStore struct {
	events []*store.Event
	err    error
}

func (s *memEventStore) SaveEvent(ev *store.Event) error {
	if s.err != nil {
		return s.err
	}
	ev.ID = "ev-1"
	s.events = append(s.events, ev)
	return nil
}

func TestCalendarTool_CreatesEvent(t *testing.T) {
	es := &memEventStore{}
	tool := NewCalendarTool(es)

	out, err := tool.Execute(context.Background(), map[string]any{
		"title":     "Team sync",
		"startTime": "2026-09-01T10:00:00Z",
		"location":  "Room 4",
	}, Context{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	result, ok := out.(*CalendarOutput)
	if !ok {
		t.Fatalf("unexpected result type %T", out)
	}
	if !result.Success {
		t.Error("expected success")
	}
	if result.Event.Title != "Team sync" || result.Event.Location != "Room 4" {
		t.Errorf("unexpected event: %+v", result.Event)
	}
	if result.Event.DurationMinutes != 60 {
		t.Errorf("expected default duration 60, got %d", result.Event.DurationMinutes)
	}
	if !result.Event.EndTime.Equal(result.Event.StartTime.Add(time.Hour)) {
		t.Errorf("expected end one hour after start, got %v", result.Event.EndTime)
	}
	if len(es.events) != 1 || es.events[0].CreatedBy != "user-1" {
		t.Errorf("expected persisted event for user-1, got %+v", es.events)
	}
}

func TestCalendarTool_EndTimeBeatsDuration(t *testing.T) {
	tool := NewCalendarTool(&memEventStore{})

	out, err := tool.Execute(context.Background(), map[string]any{
		"title":           "Workshop",
		"startTime":       "2026-09-01T10:00",
		"endTime":         "2026-09-01T11:30",
		"durationMinutes": float64(15),
	}, Context{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := out.(*CalendarOutput).Event.DurationMinutes; got != 90 {
		t.Errorf("expected endTime-derived duration 90, got %d", got)
	}
}

func TestCalendarTool_ExplicitDuration(t *testing.T) {
	tool := NewCalendarTool(&memEventStore{})

	out, err := tool.Execute(context.Background(), map[string]any{
		"title":           "Review",
		"date":            "2026-09-02",
		"durationMinutes": float64(30),
	}, Context{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := out.(*CalendarOutput).Event.DurationMinutes; got != 30 {
		t.Errorf("expected duration 30, got %d", got)
	}
}

func TestCalendarTool_DefaultsUser(t *testing.T) {
	es := &memEventStore{}
	tool := NewCalendarTool(es)

	_, err := tool.Execute(context.Background(), map[string]any{
		"title": "Solo",
		"date":  "2026-09-02",
	}, Context{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if es.events[0].CreatedBy != "demo" {
		t.Errorf("expected demo fallback user, got %q", es.events[0].CreatedBy)
	}
}

func TestCalendarTool_Validation(t *testing.T) {
	tool := NewCalendarTool(&memEventStore{})

	cases := []struct {
		name string
		args map[string]any
	}{
		{"missing title", map[string]any{"date": "2026-09-02"}},
		{"missing time", map[string]any{"title": "T"}},
		{"bad time", map[string]any{"title": "T", "startTime": "tomorrow at noon"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tool.Execute(context.Background(), tc.args, Context{})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.HasPrefix(err.Error(), "event not added:") {
				t.Errorf("unexpected error text: %v", err)
			}
		})
	}
}

func TestCalendarTool_StoreFailure(t *testing.T) {
	tool := NewCalendarTool(&memEventStore{err: errors.New("disk full")})

	_, err := tool.Execute(context.Background(), map[string]any{
		"title": "T",
		"date":  "2026-09-02",
	}, Context{})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected the store error surfaced, got %v", err)
	}
}

func TestParseEventTime(t *testing.T) {
	cases := []string{
		"2026-09-01T10:00:00Z",
		"2026-09-01T10:00:00",
		"2026-09-01T10:00",
		"2026-09-01 10:00",
		"2026-09-01",
	}
	for _, raw := range cases {
		if _, err := parseEventTime(raw); err != nil {
			t.Errorf("parseEventTime(%q) failed: %v", raw, err)
		}
	}
	if _, err := parseEventTime("next tuesday"); err == nil {
		t.Error("expected an error for free-form text")
	}
}
