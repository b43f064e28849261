package tools

import (
	"context"
	"fmt"
)

// Context carries per-call metadata about the plan that owns a tool invocation.
type Context struct {
	UserID string
}

// Tool defines the interface for all step capabilities.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]any, tc Context) (any, error)
}

// Registry manages the set of available tools.
type Registry struct {
	Tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		Tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	r.Tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.Tools[name]
}

// stringArg reads a string argument, empty if absent or of another type.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg reads a numeric argument; JSON decoding yields float64.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// requireString reads a mandatory string argument.
func requireString(args map[string]any, key string) (string, error) {
	v := stringArg(args, key)
	if v == "" {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return v, nil
}
