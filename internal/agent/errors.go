package agent

import (
	"errors"
	"fmt"
)

// ErrEmptyGoal is returned when the trimmed goal text is empty.
var ErrEmptyGoal = errors.New("empty goal")

// MalformedOutputError means the model response contains no JSON object at all.
type MalformedOutputError struct {
	Raw string
}

func (e *MalformedOutputError) Error() string {
	return "model output contains no JSON object"
}

// ParseError means a JSON object was found but could not be decoded. It
// carries the raw text so callers can inspect what the model produced.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse plan JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError means the decoded plan violates the required shape.
// Index identifies the offending step, or -1 for plan-level violations.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid plan: %s", e.Reason)
	}
	return fmt.Sprintf("invalid plan: step %d: %s", e.Index, e.Reason)
}
