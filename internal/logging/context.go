package logging

import (
	"context"
	"log/slog"

	"sam/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID is the standardized key for the active session identifier.
	FieldSessionID = "session_id"
	// FieldMessageID is the standardized key for inbound chat message identifiers.
	FieldMessageID = "message_id"
	// FieldJobID is the standardized key for queued job identifiers.
	FieldJobID = "job_id"
	// FieldJobKind is the standardized key for queued job kinds (save_media, mosaic, ...).
	FieldJobKind = "job_kind"
	// FieldCorrelationID is the standardized key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType names the event a log line records, for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries services.Kind for classified failures.
	FieldErrorKind = "error_kind"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 5)
	if id, ok := services.SessionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	if id, ok := services.MessageIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldMessageID, id))
	}
	if id, kind, ok := services.JobFromContext(ctx); ok {
		if id != "" {
			fields = append(fields, slog.String(FieldJobID, id))
		}
		if kind != "" {
			fields = append(fields, slog.String(FieldJobKind, kind))
		}
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
	return logger.With(Args(fields...)...)
}
