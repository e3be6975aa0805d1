package logging

import (
	"context"
	"log/slog"
)

// SanitizingHandler wraps a slog.Handler and redacts credentials from
// the message and every string attribute before delegating.
type SanitizingHandler struct {
	inner     slog.Handler
	sanitizer *Sanitizer
}

// NewSanitizingHandler creates a sanitizing handler.
func NewSanitizingHandler(inner slog.Handler, sanitizer *Sanitizer) *SanitizingHandler {
	return &SanitizingHandler{inner: inner, sanitizer: sanitizer}
}

// Enabled implements slog.Handler.
func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SanitizingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, h.sanitizer.Sanitize(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.sanitizeAttr(a))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

// WithAttrs implements slog.Handler.
func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		sanitized = append(sanitized, h.sanitizeAttr(a))
	}
	return &SanitizingHandler{inner: h.inner.WithAttrs(sanitized), sanitizer: h.sanitizer}
}

// WithGroup implements slog.Handler.
func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{inner: h.inner.WithGroup(name), sanitizer: h.sanitizer}
}

func (h *SanitizingHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.sanitizer.Sanitize(a.Value.String()))
	case slog.KindGroup:
		group := a.Value.Group()
		sanitized := make([]any, 0, len(group))
		for _, ga := range group {
			sanitized = append(sanitized, h.sanitizeAttr(ga))
		}
		return slog.Group(a.Key, sanitized...)
	default:
		return a
	}
}
