package agent

import (
	"context"
	"fmt"

	"github.com/rahul/taskpilot/internal/observability"
	"github.com/rahul/taskpilot/internal/store"
)

// PlanCreator persists a freshly synthesized plan.
type PlanCreator interface {
	CreatePlan(userID string, goal string, steps []store.Step) (*store.Plan, error)
}

// Engine is the goal-to-completion pipeline: synthesize a plan, persist it,
// run it. Gateways talk to this instead of wiring planner, store and
// executor themselves.
type Engine struct {
	Planner  *Planner
	Executor *Executor
	Plans    PlanCreator
	Logger   *observability.Logger
}

func NewEngine(planner *Planner, executor *Executor, plans PlanCreator, logger *observability.Logger) *Engine {
	return &Engine{
		Planner:  planner,
		Executor: executor,
		Plans:    plans,
		Logger:   logger,
	}
}

// Plan synthesizes and persists a plan for the goal. The returned record's
// steps are all pending.
func (e *Engine) Plan(ctx context.Context, userID string, goal string) (*store.Plan, error) {
	observability.SetStatus(observability.RolePlanning, goal)

	result, err := e.Planner.Plan(ctx, goal)
	if err != nil {
		observability.SetStatus(observability.RoleIdle, "")
		return nil, err
	}

	steps := make([]store.Step, 0, len(result.Steps))
	for _, s := range result.Steps {
		steps = append(steps, store.Step{
			ID:     s.ID,
			Action: s.Action,
			Tool:   s.Tool,
			Args:   s.Args,
		})
	}

	plan, err := e.Plans.CreatePlan(userID, result.Goal, steps)
	if err != nil {
		observability.SetStatus(observability.RoleIdle, "")
		return nil, fmt.Errorf("failed to persist plan: %w", err)
	}

	if e.Logger != nil {
		e.Logger.LogPlan(userID, plan.ID, plan.Goal, len(plan.Steps))
	}
	return plan, nil
}

// Execute runs a persisted plan to completion, streaming events to onEvent.
func (e *Engine) Execute(ctx context.Context, plan *store.Plan, onEvent EventFunc) {
	observability.SetStatus(observability.RoleExecuting, plan.Goal)
	e.Executor.Execute(ctx, plan, onEvent)
	observability.PlanFinished()
}
