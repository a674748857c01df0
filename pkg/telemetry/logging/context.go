package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	// ReloadIDKey is the context key for the ID of the reload in progress.
	ReloadIDKey contextKey = "reload_id"

	// TriggerKey is the context key for what started a reload
	// (cli, watch, git, schedule).
	TriggerKey contextKey = "trigger"
)

// WithReloadID adds a reload ID to the context.
func WithReloadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ReloadIDKey, id)
}

// GetReloadID retrieves the reload ID from the context.
func GetReloadID(ctx context.Context) string {
	if id, ok := ctx.Value(ReloadIDKey).(string); ok {
		return id
	}
	return ""
}

// WithTrigger records what started the work carried by ctx.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, TriggerKey, trigger)
}

// GetTrigger retrieves the trigger from the context.
func GetTrigger(ctx context.Context) string {
	if t, ok := ctx.Value(TriggerKey).(string); ok {
		return t
	}
	return ""
}

// extractContextFields returns the context's log fields as attributes.
func extractContextFields(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if id := GetReloadID(ctx); id != "" {
		attrs = append(attrs, slog.String("reload_id", id))
	}
	if t := GetTrigger(ctx); t != "" {
		attrs = append(attrs, slog.String("trigger", t))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
	}
	return attrs
}

// ContextHandler is a slog.Handler that adds context fields to each record.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if attrs := extractContextFields(ctx); len(attrs) > 0 {
			r = r.Clone()
			r.AddAttrs(attrs...)
		}
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
