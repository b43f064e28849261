package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/rahul/taskpilot/internal/observability"
	"github.com/tmc/langchaingo/llms"
)

const (
	planTemperature = 0.2
	planMaxTokens   = 800
)

// validTools is the closed set of step capabilities a plan may reference.
var validTools = map[string]bool{
	"search":   true,
	"calendar": true,
	"email":    true,
}

// PlannerStep mirrors a plan step before execution state is attached.
type PlannerStep struct {
	ID     int            `json:"id"`
	Action string         `json:"action"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
}

// PlannerResult is the validated shape the planner guarantees.
type PlannerResult struct {
	Goal  string        `json:"goal"`
	Steps []PlannerStep `json:"steps"`
}

// PlanCache maps a goal-content hash to the last raw model response.
type PlanCache interface {
	Get(key string) (string, bool, error)
	Set(key string, value string) error
}

// Planner turns a free-text goal into a validated plan via the language
// model, with cache-assisted resilience: an identical goal reuses the last
// raw response both as a fast path and as a degraded-mode fallback when the
// live call or its output fails.
type Planner struct {
	Model   llms.Model
	Cache   PlanCache
	Prompts *PromptManager
	Logger  *observability.Logger
}

func NewPlanner(model llms.Model, cache PlanCache, prompts *PromptManager, logger *observability.Logger) *Planner {
	return &Planner{
		Model:   model,
		Cache:   cache,
		Prompts: prompts,
		Logger:  logger,
	}
}

func (p *Planner) Plan(ctx context.Context, goal string) (*PlannerResult, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, ErrEmptyGoal
	}

	key := hashGoal(goal)

	// Fast path: a previous generation for the identical goal text.
	if p.Cache != nil {
		if cached, ok, err := p.Cache.Get(key); err == nil && ok {
			if p.Logger != nil {
				p.Logger.LogCache(key, true)
			}
			if result, err := parsePlannerResponse(cached, goal); err == nil {
				return result, nil
			}
			// Cached text no longer validates; fall through to a live call.
		}
	}

	prompt := fmt.Sprintf(p.Prompts.GetPlannerPrompt(), goal)

	raw, genErr := llms.GenerateFromSinglePrompt(ctx, p.Model, prompt,
		llms.WithTemperature(planTemperature),
		llms.WithMaxTokens(planMaxTokens),
	)
	if genErr == nil {
		// Cache the raw text before validating it, so a later run can
		// retry validation against a fixed response.
		if p.Cache != nil {
			if err := p.Cache.Set(key, raw); err != nil {
				log.Printf("Warning: failed to cache planner response: %v", err)
			}
		}
		if p.Logger != nil {
			p.Logger.LogLLM("", "", prompt, raw)
		}

		result, err := parsePlannerResponse(raw, goal)
		if err == nil {
			return result, nil
		}
		genErr = err
	}

	// Degraded mode: retry against the last cached raw response for this
	// goal hash. Keyed by content hash, this can never substitute a
	// different goal's plan.
	if p.Cache != nil {
		if cached, ok, err := p.Cache.Get(key); err == nil && ok {
			if result, err := parsePlannerResponse(cached, goal); err == nil {
				return result, nil
			}
		}
	}

	return nil, genErr
}

// hashGoal computes the cache key: SHA-256 hex of the trimmed goal text.
func hashGoal(goal string) string {
	sum := sha256.Sum256([]byte(goal))
	return hex.EncodeToString(sum[:])
}

// parsePlannerResponse runs the two-stage extract-then-parse contract and
// validates the decoded shape.
func parsePlannerResponse(raw string, goal string) (*PlannerResult, error) {
	text, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Goal  string           `json:"goal"`
		Steps []map[string]any `json:"steps"`
	}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	if len(decoded.Steps) == 0 {
		return nil, &ValidationError{Index: -1, Reason: "plan has no steps"}
	}

	result := &PlannerResult{Goal: decoded.Goal}
	if result.Goal == "" {
		result.Goal = goal
	}

	for i, raw := range decoded.Steps {
		step, err := validateStep(i, raw)
		if err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, step)
	}

	return result, nil
}

func validateStep(index int, raw map[string]any) (PlannerStep, error) {
	id, ok := raw["id"].(float64)
	if !ok {
		return PlannerStep{}, &ValidationError{Index: index, Reason: "step id must be a number"}
	}
	action, ok := raw["action"].(string)
	if !ok {
		return PlannerStep{}, &ValidationError{Index: index, Reason: "step action must be a string"}
	}
	tool, ok := raw["tool"].(string)
	if !ok || !validTools[tool] {
		return PlannerStep{}, &ValidationError{Index: index, Reason: fmt.Sprintf("step tool must be one of search, calendar, email (got %v)", raw["tool"])}
	}
	args, ok := raw["args"].(map[string]any)
	if !ok {
		return PlannerStep{}, &ValidationError{Index: index, Reason: "step args must be an object"}
	}

	return PlannerStep{
		ID:     int(id),
		Action: action,
		Tool:   tool,
		Args:   args,
	}, nil
}

// extractJSON locates the JSON object inside free-form model output: the
// text itself if it is a bare object, otherwise the span from the first '{'
// to the last '}'.
func extractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		return text, nil
	}
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last <= first {
		return "", &MalformedOutputError{Raw: raw}
	}
	return text[first : last+1], nil
}
