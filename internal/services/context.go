package services

import "context"

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	messageIDKey contextKey = "message_id"
	jobIDKey     contextKey = "job_id"
	jobKindKey   contextKey = "job_kind"
	requestIDKey contextKey = "request_id"
)

// WithSessionID annotates context with the session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, sessionIDKey)
}

// WithMessageID annotates context with the inbound chat message identifier.
func WithMessageID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, messageIDKey, id)
}

// MessageIDFromContext returns the chat message identifier if present.
func MessageIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, messageIDKey)
}

// WithJob annotates context with the queued job identifier and kind.
func WithJob(ctx context.Context, id, kind string) context.Context {
	if id != "" {
		ctx = context.WithValue(ctx, jobIDKey, id)
	}
	if kind != "" {
		ctx = context.WithValue(ctx, jobKindKey, kind)
	}
	return ctx
}

// JobFromContext returns the job identifier and kind if present.
func JobFromContext(ctx context.Context) (id, kind string, ok bool) {
	id, idOK := stringValue(ctx, jobIDKey)
	kind, kindOK := stringValue(ctx, jobKindKey)
	return id, kind, idOK || kindOK
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
	return stringValue(ctx, requestIDKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
