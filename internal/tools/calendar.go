package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/rahul/taskpilot/internal/store"
)

// EventStore persists calendar events.
type EventStore interface {
	SaveEvent(ev *store.Event) error
}

// CalendarEvent is the event shape returned to the caller after creation.
type CalendarEvent struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Date            time.Time `json:"date"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Location        string    `json:"location"`
}

// CalendarOutput is the calendar tool's result shape.
type CalendarOutput struct {
	Success bool          `json:"success"`
	Event   CalendarEvent `json:"event"`
}

type CalendarTool struct {
	Store EventStore
}

func NewCalendarTool(s EventStore) *CalendarTool {
	return &CalendarTool{Store: s}
}

func (c *CalendarTool) Name() string {
	return "calendar"
}

func (c *CalendarTool) Description() string {
	return "Create a calendar event from a title plus a startTime or date, with optional duration and location."
}

func (c *CalendarTool) Execute(ctx context.Context, args map[string]any, tc Context) (any, error) {
	title, err := requireString(args, "title")
	if err != nil {
		return nil, fmt.Errorf("event not added: %v", err)
	}

	raw := stringArg(args, "startTime")
	if raw == "" {
		raw = stringArg(args, "date")
	}
	if raw == "" {
		return nil, fmt.Errorf("event not added: either 'date' or 'startTime' must be provided")
	}

	eventDate, err := parseEventTime(raw)
	if err != nil {
		return nil, fmt.Errorf("event not added: invalid date format. Received: %s", raw)
	}

	duration := 60
	if d, ok := intArg(args, "durationMinutes"); ok && d > 0 {
		duration = d
	}
	if end := stringArg(args, "endTime"); end != "" {
		if endTime, err := parseEventTime(end); err == nil && endTime.After(eventDate) {
			duration = int(endTime.Sub(eventDate).Round(time.Minute) / time.Minute)
		}
	}

	userID := tc.UserID
	if userID == "" {
		userID = "demo"
	}

	ev := &store.Event{
		Title:           title,
		Description:     stringArg(args, "description"),
		Date:            eventDate,
		DurationMinutes: duration,
		Location:        stringArg(args, "location"),
		CreatedBy:       userID,
	}

	if err := c.Store.SaveEvent(ev); err != nil {
		return nil, fmt.Errorf("event not added: %v", err)
	}

	return &CalendarOutput{
		Success: true,
		Event: CalendarEvent{
			ID:              ev.ID,
			Title:           ev.Title,
			Description:     ev.Description,
			Date:            ev.Date,
			StartTime:       ev.Date,
			EndTime:         ev.Date.Add(time.Duration(duration) * time.Minute),
			DurationMinutes: duration,
			Location:        ev.Location,
		},
	}, nil
}

// parseEventTime accepts ISO-8601 timestamps and a few looser forms the
// planner model tends to produce.
func parseEventTime(raw string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}
