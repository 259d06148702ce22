// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lifecycle models the states a server moves through and the
// hooks which run relative to it.
package lifecycle

import (
	"context"
	"errors"
	"sync"
)

// Hook represents functionality that needs to be performed
// at a specific "time" relative to the server running.
type Hook interface {
	Run(context.Context) error
}

// HookFunc is a func variant of the [Hook] interface.
type HookFunc func(context.Context) error

// Run implements the [Hook] interface.
func (f HookFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type multiHook []Hook

func (mh multiHook) Run(ctx context.Context) error {
	var errs []error
	for _, h := range mh {
		if h == nil {
			continue
		}
		err := h.Run(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}

// MultiHook returns a [Hook] that runs every given [Hook] in order.
// A failing hook does not stop the ones after it. Nil hooks are skipped.
func MultiHook(hooks ...Hook) Hook {
	return multiHook(hooks)
}

// Context collects hooks registered while the server is being built
// so they can run once it stops.
type Context struct {
	mu       sync.Mutex
	postRuns multiHook
}

// OnPostRun registers a [Hook] to run after the server stops.
// Hooks run in registration order.
func (c *Context) OnPostRun(hook Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postRuns = append(c.postRuns, hook)
}

// PostRun returns a [Hook] composed of every hook given to [Context.OnPostRun].
func (c *Context) PostRun() Hook {
	c.mu.Lock()
	defer c.mu.Unlock()
	hooks := make(multiHook, len(c.postRuns))
	copy(hooks, c.postRuns)
	return hooks
}

type contextKey struct{}

// NewContext returns a copy of parent carrying c.
func NewContext(parent context.Context, c *Context) context.Context {
	return context.WithValue(parent, contextKey{}, c)
}

// FromContext extracts the [Context] stored by [NewContext], if any.
func FromContext(ctx context.Context) (*Context, bool) {
	lc, ok := ctx.Value(contextKey{}).(*Context)
	return lc, ok
}
