package store

import "time"

// Step statuses. A step moves pending -> done or pending -> failed exactly once.
const (
	StepPending = "pending"
	StepDone    = "done"
	StepFailed  = "failed"
)

// Step is a single tool invocation within a plan. ID is unique within the
// plan and defines execution order (ascending).
type Step struct {
	ID     int            `json:"id"`
	Action string         `json:"action"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Status string         `json:"status"`
	Result any            `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// LogEntry is one record in a plan's append-only audit trail.
type LogEntry struct {
	Time  time.Time      `json:"time"`
	Entry map[string]any `json:"entry"`
}

// Plan is the durable record of a goal and its execution state.
type Plan struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Goal       string     `json:"goal"`
	Steps      []Step     `json:"steps"`
	Logs       []LogEntry `json:"logs"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// StepPatch carries the fields of a step that change after dispatch.
type StepPatch struct {
	Status string
	Result any
	Error  string
}

// Event is a calendar entry created by the calendar tool.
type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Date            time.Time `json:"date"`
	DurationMinutes int       `json:"durationMinutes"`
	Location        string    `json:"location"`
	CreatedBy       string    `json:"createdBy"`
	CreatedAt       time.Time `json:"createdAt"`
}
