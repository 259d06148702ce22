// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelslog provides a OpenTelemetry aware slog.Handler implementation.
package otelslog

import (
	"context"
	"log/slog"

	"github.com/z5labs/webserver/pkg/slogfield"

	"go.opentelemetry.io/otel/trace"
)

// Handler wraps another slog.Handler and adds an "otel" group holding
// the trace id, span id and sampled flag of the span found in the
// record's context. Records logged outside a span pass through as is.
type Handler struct {
	next slog.Handler
}

// NewHandler wraps h.
func NewHandler(h slog.Handler) *Handler {
	return &Handler{next: h}
}

// New provides a simple wrapper for slog.New(NewHandler(h)).
func New(h slog.Handler) *slog.Logger {
	return slog.New(NewHandler(h))
}

// Enabled implements the slog.Handler interface.
func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

// Handle implements the slog.Handler interface.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return h.next.Handle(ctx, record)
	}

	r := record.Clone()
	r.AddAttrs(spanGroup(spanCtx))
	return h.next.Handle(ctx, r)
}

func spanGroup(spanCtx trace.SpanContext) slog.Attr {
	return slog.Group(
		"otel",
		slogfield.String("trace_id", spanCtx.TraceID().String()),
		slogfield.String("span_id", spanCtx.SpanID().String()),
		slogfield.Bool("sampled", spanCtx.IsSampled()),
	)
}

// WithAttrs implements the slog.Handler interface.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewHandler(h.next.WithAttrs(attrs))
}

// WithGroup implements the slog.Handler interface.
func (h *Handler) WithGroup(name string) slog.Handler {
	return NewHandler(h.next.WithGroup(name))
}
