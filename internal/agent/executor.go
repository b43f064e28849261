package agent

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	"github.com/rahul/taskpilot/internal/attach"
	"github.com/rahul/taskpilot/internal/governance"
	"github.com/rahul/taskpilot/internal/observability"
	"github.com/rahul/taskpilot/internal/store"
	"github.com/rahul/taskpilot/internal/tools"
	"github.com/tmc/langchaingo/llms"
)

// EventType categorizes progress events emitted during plan execution.
type EventType string

const (
	EventLog       EventType = "log"
	EventCompleted EventType = "completed"
	// EventRetry is recognized by gateways relaying engine events, but the
	// engine never emits it: there is no retry logic at the tool-call level.
	EventRetry EventType = "retry"
)

// Event is one progress notification delivered to the caller. Zero or more
// log events per run, exactly one completed event.
type Event struct {
	Type    EventType `json:"type"`
	PlanID  string    `json:"planId,omitempty"`
	StepID  int       `json:"stepId,omitempty"`
	Message string    `json:"message"`
	Result  any       `json:"result,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// EventFunc receives progress events during a run.
type EventFunc func(Event)

// PlanStore is the narrow persistence contract the executor needs: patch a
// step, append to the audit log, stamp completion.
type PlanStore interface {
	UpdateStep(planID string, stepID int, patch store.StepPatch) error
	AppendLog(planID string, entry map[string]any) error
	FinalizePlan(planID string) error
}

// AttachmentBuilder generates files referenced from an email step. Both
// operations are best-effort; failures never block delivery.
type AttachmentBuilder interface {
	SearchReport(goal string, sections []attach.ReportSection) (string, error)
	CalendarInvite(ev attach.EventData) (string, error)
}

// Executor runs a plan's steps strictly in ascending id order, one at a
// time. Failures are step-scoped: a failed step is recorded and the run
// proceeds to the next step. The executor never reports step failures to
// its caller except through the event stream and the persisted record.
type Executor struct {
	Registry    *tools.Registry
	Store       PlanStore
	Model       llms.Model
	Policy      governance.PolicyEngine
	Attachments AttachmentBuilder
	Prompts     *PromptManager
	Logger      *observability.Logger
}

func NewExecutor(registry *tools.Registry, planStore PlanStore, model llms.Model, policy governance.PolicyEngine, attachments AttachmentBuilder, prompts *PromptManager, logger *observability.Logger) *Executor {
	return &Executor{
		Registry:    registry,
		Store:       planStore,
		Model:       model,
		Policy:      policy,
		Attachments: attachments,
		Prompts:     prompts,
		Logger:      logger,
	}
}

// Execute mutates the plan's steps, logs and completion timestamp as a side
// effect and emits progress events. It finalizes the record exactly once,
// even when every step failed.
func (e *Executor) Execute(ctx context.Context, plan *store.Plan, onEvent EventFunc) {
	if onEvent == nil {
		onEvent = func(Event) {}
	}

	// Execution order is the ascending step id, not array position.
	order := make([]int, len(plan.Steps))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return plan.Steps[order[a]].ID < plan.Steps[order[b]].ID
	})

	toolResults := make(map[int]any)

	for _, idx := range order {
		step := &plan.Steps[idx]

		onEvent(Event{
			Type:    EventLog,
			PlanID:  plan.ID,
			StepID:  step.ID,
			Message: fmt.Sprintf("Starting step %d: %s", step.ID, step.Action),
		})
		e.appendLog(plan.ID, map[string]any{"stepId": step.ID, "status": "starting", "action": step.Action})
		if e.Logger != nil {
			e.Logger.LogStep(plan.UserID, plan.ID, step.ID, "starting", step.Action)
		}

		tool := e.Registry.Get(step.Tool)
		if tool == nil {
			e.failStep(plan, step, "Unknown tool",
				fmt.Sprintf("Failed step %d: Unknown tool %q", step.ID, step.Tool), onEvent)
			continue
		}

		if reason, denied := e.denied(ctx, plan, step); denied {
			e.failStep(plan, step, reason,
				fmt.Sprintf("Step %d failed: %s", step.ID, reason), onEvent)
			continue
		}

		if step.Tool == "calendar" && !hasArg(step.Args, "startTime") && !hasArg(step.Args, "date") {
			e.failStep(plan, step, "Calendar event missing startTime or date",
				fmt.Sprintf("Step %d failed: Calendar event missing startTime or date", step.ID), onEvent)
			continue
		}

		if step.Tool == "email" {
			e.prepareEmailStep(ctx, plan, step, toolResults)
		}

		if e.Logger != nil {
			e.Logger.LogToolCall(plan.UserID, plan.ID, step.Tool, step.Args)
		}

		result, err := tool.Execute(ctx, step.Args, tools.Context{UserID: plan.UserID})
		if err != nil {
			e.failStep(plan, step, err.Error(),
				fmt.Sprintf("Step %d failed: %s", step.ID, err.Error()), onEvent)
			continue
		}

		toolResults[step.ID] = result
		step.Status = store.StepDone
		step.Result = result
		e.updateStep(plan.ID, step.ID, store.StepPatch{Status: store.StepDone, Result: result})
		e.appendLog(plan.ID, map[string]any{"stepId": step.ID, "status": "done", "result": result})
		onEvent(Event{
			Type:    EventLog,
			PlanID:  plan.ID,
			StepID:  step.ID,
			Message: fmt.Sprintf("Step %d done.", step.ID),
			Result:  result,
		})
	}

	e.finalize(plan)

	onEvent(Event{
		Type:    EventCompleted,
		PlanID:  plan.ID,
		Message: "Plan execution finished.",
	})
}

// denied evaluates the governance policy for a step's tool call.
func (e *Executor) denied(ctx context.Context, plan *store.Plan, step *store.Step) (string, bool) {
	if e.Policy == nil {
		return "", false
	}
	res, err := e.Policy.Evaluate(ctx, governance.Request{
		Tool:      step.Tool,
		Arguments: step.Args,
		UserID:    plan.UserID,
	})
	if err != nil {
		log.Printf("Warning: policy evaluation failed for step %d: %v", step.ID, err)
		return "", false
	}
	if res.Effect == governance.EffectDeny {
		return res.Reason, true
	}
	return "", false
}

// prepareEmailStep attaches generated files and rewrites the email body
// using earlier step results. Everything here is best-effort: a failure is
// logged and the original args are kept.
func (e *Executor) prepareEmailStep(ctx context.Context, plan *store.Plan, step *store.Step, toolResults map[int]any) {
	searches := searchFindingsBefore(plan.Steps, toolResults, step.ID)
	calendars := calendarEventsBefore(plan.Steps, toolResults, step.ID)
	if len(searches) == 0 && len(calendars) == 0 {
		return
	}

	var attachmentNames []string

	if e.Attachments != nil {
		if len(searches) > 0 {
			sections := make([]attach.ReportSection, 0, len(searches))
			for _, s := range searches {
				section := attach.ReportSection{Query: s.Query}
				for _, r := range s.Results {
					section.Items = append(section.Items, attach.ReportItem{
						Title:   r.Title,
						URL:     r.URL,
						Content: r.Content,
					})
				}
				sections = append(sections, section)
			}
			if path, err := e.Attachments.SearchReport(plan.Goal, sections); err != nil {
				log.Printf("Warning: report generation failed: %v", err)
			} else {
				appendAttachment(step.Args, path)
				attachmentNames = append(attachmentNames, filepath.Base(path))
			}
		}

		for _, ev := range calendars {
			path, err := e.Attachments.CalendarInvite(attach.EventData{
				Title:       ev.Title,
				Description: ev.Description,
				Location:    ev.Location,
				Start:       ev.StartTime,
				End:         ev.EndTime,
			})
			if err != nil {
				log.Printf("Warning: invite generation failed: %v", err)
				continue
			}
			appendAttachment(step.Args, path)
			attachmentNames = append(attachmentNames, filepath.Base(path))
		}
	}

	body := stringArg(step.Args, "body")
	step.Args["body"] = e.enrichEmailBody(ctx, body, searches, calendars, attachmentNames, plan.Goal)
}

func (e *Executor) failStep(plan *store.Plan, step *store.Step, errText string, message string, onEvent EventFunc) {
	step.Status = store.StepFailed
	step.Error = errText
	e.updateStep(plan.ID, step.ID, store.StepPatch{Status: store.StepFailed, Error: errText})
	e.appendLog(plan.ID, map[string]any{"stepId": step.ID, "status": "failed", "error": errText})
	if e.Logger != nil {
		e.Logger.LogStep(plan.UserID, plan.ID, step.ID, "failed", errText)
	}
	onEvent(Event{
		Type:    EventLog,
		PlanID:  plan.ID,
		StepID:  step.ID,
		Message: message,
		Error:   errText,
	})
}

// Persistence failures are logged and never abort the run.

func (e *Executor) updateStep(planID string, stepID int, patch store.StepPatch) {
	if e.Store == nil {
		return
	}
	if err := e.Store.UpdateStep(planID, stepID, patch); err != nil {
		log.Printf("Warning: failed to persist step %d of plan %s: %v", stepID, planID, err)
	}
}

func (e *Executor) appendLog(planID string, entry map[string]any) {
	if e.Store == nil {
		return
	}
	if err := e.Store.AppendLog(planID, entry); err != nil {
		log.Printf("Warning: failed to append log for plan %s: %v", planID, err)
	}
}

func (e *Executor) finalize(plan *store.Plan) {
	now := time.Now().UTC()
	plan.FinishedAt = &now
	if e.Store == nil {
		return
	}
	if err := e.Store.FinalizePlan(plan.ID); err != nil {
		log.Printf("Warning: failed to finalize plan %s: %v", plan.ID, err)
	}
}

// hasArg reports whether the argument is present and non-empty.
func hasArg(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// appendAttachment records a generated file in the step's attachments arg.
func appendAttachment(args map[string]any, path string) {
	att := map[string]any{"filename": filepath.Base(path), "path": path}
	if list, ok := args["attachments"].([]any); ok {
		args["attachments"] = append(list, att)
	} else {
		args["attachments"] = []any{att}
	}
}
