// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package maskslog provides a slog.Handler which masks sensitive
// attribute values before they are written.
package maskslog

import (
	"context"
	"log/slog"
	"strings"
)

// Mask is the replacement written in place of masked values.
const Mask = "****"

// Option helps configure the Handler.
type Option func(*Handler)

// Attr registers a function for masking a top level slog.Attr given its key.
func Attr(key string, f func(slog.Attr) slog.Attr) Option {
	return func(h *Handler) {
		h.attrs[key] = f
	}
}

// Redact replaces the whole value of a with [Mask].
func Redact(a slog.Attr) slog.Attr {
	return slog.String(a.Key, Mask)
}

// HeaderValues returns a masking func for attributes holding a raw
// HTTP request head. The value of every header line whose name matches
// one of names, case-insensitively, is replaced with [Mask]. Everything
// else, including line terminators, is left untouched.
func HeaderValues(names ...string) func(slog.Attr) slog.Attr {
	return func(a slog.Attr) slog.Attr {
		raw := a.Value.String()
		lines := strings.SplitAfter(raw, "\n")

		masked := false
		for i, line := range lines {
			name, _, ok := strings.Cut(line, ":")
			if !ok || !matchesAny(strings.TrimSpace(name), names) {
				continue
			}

			eol := line[len(strings.TrimRight(line, "\r\n")):]
			lines[i] = name + ": " + Mask + eol
			masked = true
		}
		if !masked {
			return a
		}
		return slog.String(a.Key, strings.Join(lines, ""))
	}
}

func matchesAny(name string, names []string) bool {
	for _, n := range names {
		if strings.EqualFold(name, n) {
			return true
		}
	}
	return false
}

// Handler is an slog.Handler.
type Handler struct {
	next  slog.Handler
	attrs map[string]func(slog.Attr) slog.Attr
}

// NewHandler returns a new Handler.
func NewHandler(h slog.Handler, opts ...Option) *Handler {
	mh := &Handler{
		next:  h,
		attrs: make(map[string]func(slog.Attr) slog.Attr),
	}
	for _, opt := range opts {
		opt(mh)
	}
	return mh
}

// Enabled implements the slog.Handler interface.
func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

// Handle implements the slog.Handler interface.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if len(h.attrs) == 0 || record.NumAttrs() == 0 {
		return h.next.Handle(ctx, record)
	}

	attrs := make([]slog.Attr, 0, record.NumAttrs())
	record.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.mask(a))
		return true
	})

	nr := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	nr.AddAttrs(attrs...)
	return h.next.Handle(ctx, nr)
}

func (h *Handler) mask(a slog.Attr) slog.Attr {
	f, ok := h.attrs[a.Key]
	if !ok {
		return a
	}
	return f(a)
}

// WithAttrs implements the slog.Handler interface.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.mask(a)
	}
	return &Handler{
		next:  h.next.WithAttrs(masked),
		attrs: h.attrs,
	}
}

// WithGroup implements the slog.Handler interface.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		next:  h.next.WithGroup(name),
		attrs: h.attrs,
	}
}
