package audit

import (
	"context"
	"strings"
)

type ctxKey string

const (
	requestIDKey ctxKey = "audit_request_id"
	actorKey     ctxKey = "audit_actor"
)

// WithRequestID attaches the invocation identifier recorded in entry meta.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithActor attaches the acting username used when an Event leaves Actor empty.
func WithActor(ctx context.Context, actor string) context.Context {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the acting username, if any.
func ActorFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(actorKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
