package logging

import (
	"context"
)

// Context keys for logging values.
// Using a private type to avoid key collisions.
type contextKey int

const (
	componentKey contextKey = iota
	hookKey
)

// WithComponent adds a component name to the context.
// Component names identify the subsystem generating diagnostics
// (e.g., "hooks", "checkpoint", "doctor").
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithHook adds a hook name to the context (e.g., "route", "log-cli").
func WithHook(ctx context.Context, hook string) context.Context {
	return context.WithValue(ctx, hookKey, hook)
}

// ComponentFromContext extracts the component name from the context.
// Returns empty string if not set.
func ComponentFromContext(ctx context.Context) string {
	if v := ctx.Value(componentKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// HookFromContext extracts the hook name from the context.
// Returns empty string if not set.
func HookFromContext(ctx context.Context) string {
	if v := ctx.Value(hookKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
