package services

import "context"

type contextKey string

const (
	blockKey     contextKey = "block"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithBlock annotates context with the survey block key.
func WithBlock(ctx context.Context, block string) context.Context {
	if block == "" {
		return ctx
	}
	return context.WithValue(ctx, blockKey, block)
}

// BlockFromContext extracts the survey block key if present.
func BlockFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(blockKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
