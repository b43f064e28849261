package attach

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

// EventData describes the calendar event an invite is generated for.
type EventData struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// CalendarInvite writes an .ics invite file for the event and returns the
// file path.
func (b *Builder) CalendarInvite(ev EventData) (string, error) {
	if err := os.MkdirAll(b.Dir, 0755); err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//taskpilot//EN")

	event := cal.AddEvent(uuid.NewString())
	now := time.Now()
	event.SetCreatedTime(now)
	event.SetDtStampTime(now)
	event.SetStartAt(ev.Start)
	event.SetEndAt(ev.End)
	event.SetSummary(ev.Title)
	if ev.Description != "" {
		event.SetDescription(ev.Description)
	}
	if ev.Location != "" {
		event.SetLocation(ev.Location)
	}
	event.SetStatus(ics.ObjectStatusConfirmed)

	path := filepath.Join(b.Dir, fmt.Sprintf("event-%s-%d.ics", sanitizeName(ev.Title), now.Unix()))
	if err := os.WriteFile(path, []byte(cal.Serialize()), 0644); err != nil {
		return "", fmt.Errorf("failed to write invite: %w", err)
	}
	return path, nil
}
