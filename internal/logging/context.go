package logging

import (
	"context"
	"log/slog"

	"portalsync/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldActionID is the standardized structured logging key for queued action identifiers.
	FieldActionID = "action_id"
	// FieldActionType is the standardized structured logging key for logical operation names.
	FieldActionType = "action_type"
	// FieldMode is the standardized structured logging key for the active backend mode.
	FieldMode = "mode"
	// FieldAttempts is the standardized structured logging key for replay attempt counts.
	FieldAttempts = "attempts"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering (e.g. "action_queued").
	FieldEventType = "event_type"
	// FieldErrorHint carries a short operator-facing next step.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.ActionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldActionID, id))
	}
	if actionType, ok := services.ActionTypeFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldActionType, actionType))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
