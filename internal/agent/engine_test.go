package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rahul/taskpilot/internal/store"
	"github.com/rahul/taskpilot/internal/tools"
)

type memPlanCreator struct {
	created []*store.Plan
	err     error
}

func (m *memPlanCreator) CreatePlan(userID string, goal string, steps []store.Step) (*store.Plan, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range steps {
		steps[i].Status = store.StepPending
	}
	plan := &store.Plan{ID: uuid.NewString(), UserID: userID, Goal: goal, Steps: steps, CreatedAt: time.Now().UTC()}
	m.created = append(m.created, plan)
	return plan, nil
}

func newTestEngine(model *fakeModel, creator PlanCreator) *Engine {
	registry := tools.NewRegistry()
	registry.Register(&fakeTool{name: "search", result: &tools.SearchOutput{}})
	registry.Register(&fakeTool{name: "email", result: &tools.EmailOutput{Sent: true}})

	planner := newTestPlanner(model, nil)
	executor := newTestExecutor(registry, &fakePlanStore{}, model)
	return NewEngine(planner, executor, creator, nil)
}

func TestEngine_PlanPersistsSteps(t *testing.T) {
	creator := &memPlanCreator{}
	engine := newTestEngine(&fakeModel{response: validPlanJSON}, creator)

	plan, err := engine.Plan(context.Background(), "user-1", "Research AI tools")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.UserID != "user-1" {
		t.Errorf("unexpected user: %q", plan.UserID)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.Steps))
	}
	for _, step := range plan.Steps {
		if step.Status != store.StepPending {
			t.Errorf("step %d: expected pending, got %q", step.ID, step.Status)
		}
	}
	if len(creator.created) != 1 {
		t.Errorf("expected one persisted plan, got %d", len(creator.created))
	}
}

func TestEngine_PlanPropagatesPlannerError(t *testing.T) {
	creator := &memPlanCreator{}
	engine := newTestEngine(&fakeModel{response: "no json"}, creator)

	if _, err := engine.Plan(context.Background(), "user-1", "goal"); err == nil {
		t.Fatal("expected a planner error")
	}
	if len(creator.created) != 0 {
		t.Error("expected nothing persisted on planner failure")
	}
}

func TestEngine_PlanPropagatesStoreError(t *testing.T) {
	creator := &memPlanCreator{err: errors.New("db locked")}
	engine := newTestEngine(&fakeModel{response: validPlanJSON}, creator)

	if _, err := engine.Plan(context.Background(), "user-1", "goal"); err == nil {
		t.Fatal("expected a persistence error")
	}
}

func TestEngine_ExecuteRunsToCompletion(t *testing.T) {
	creator := &memPlanCreator{}
	engine := newTestEngine(&fakeModel{response: validPlanJSON}, creator)

	plan, err := engine.Plan(context.Background(), "user-1", "Research AI tools")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	var completed int
	engine.Execute(context.Background(), plan, func(e Event) {
		if e.Type == EventCompleted {
			completed++
		}
	})

	if completed != 1 {
		t.Errorf("expected exactly one completed event, got %d", completed)
	}
	if plan.FinishedAt == nil {
		t.Error("expected completion timestamp")
	}
}
