package services

import "context"

type contextKey string

const (
	actionIDKey   contextKey = "action_id"
	actionTypeKey contextKey = "action_type"
	requestIDKey  contextKey = "request_id"
)

// WithActionID annotates context with the queued action identifier.
func WithActionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, actionIDKey, id)
}

// ActionIDFromContext extracts the queued action identifier if present.
func ActionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(actionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithActionType annotates context with the logical operation name.
func WithActionType(ctx context.Context, actionType string) context.Context {
	if actionType == "" {
		return ctx
	}
	return context.WithValue(ctx, actionTypeKey, actionType)
}

// ActionTypeFromContext returns the logical operation name if present.
func ActionTypeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(actionTypeKey).(string); ok && v != "" {
		return v, true
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
