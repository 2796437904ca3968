package logging

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const runIDKey contextKey = "run_id"

// ContextWithRunID returns a context carrying a conversation run id.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts the run id from a context.
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		return runID
	}
	return ""
}

// EnsureRunID returns ctx unchanged when it already carries a run id, and
// otherwise attaches a fresh random one.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	if runID := RunIDFromContext(ctx); runID != "" {
		return ctx, runID
	}
	runID := uuid.NewString()
	return ContextWithRunID(ctx, runID), runID
}
