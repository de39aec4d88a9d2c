package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID     contextKey = "run_id"
	ContextKeyObjectKey contextKey = "object_key"
)

// WithRunID adds a pipeline run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithObjectKey records the triggering object key on the context
func WithObjectKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ContextKeyObjectKey, key)
}

// ObjectKeyFromContext extracts the object key from context
func ObjectKeyFromContext(ctx context.Context) string {
	if key, ok := ctx.Value(ContextKeyObjectKey).(string); ok {
		return key
	}
	return ""
}
