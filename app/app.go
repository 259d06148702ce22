// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app provides middleware for a [webserver.App].
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/z5labs/webserver"
	"github.com/z5labs/webserver/internal/try"
	"github.com/z5labs/webserver/lifecycle"
)

// Recover will wrap the give [webserver.App] with panic recovery.
// A recovered panic is returned as a [try.PanicError].
func Recover(app webserver.App) webserver.App {
	return webserver.AppFunc(func(ctx context.Context) (err error) {
		defer try.Recover(&err)
		return app.Run(ctx)
	})
}

// WithSignalNotifications cancels the [context.Context] passed to app.Run
// once any of the given signals is received.
//
// Only the first signal is caught. The signals are then handed back to
// their default behaviour so sending one again, while the app is still
// winding down, terminates the process immediately.
func WithSignalNotifications(app webserver.App, signals ...os.Signal) webserver.App {
	return webserver.AppFunc(func(ctx context.Context) error {
		sigCtx, stop := signal.NotifyContext(ctx, signals...)
		defer stop()

		go func() {
			<-sigCtx.Done()
			stop()
		}()

		return app.Run(sigCtx)
	})
}

// Lifecycle
type Lifecycle struct {
	// PostRun is always executed regardless if the underlying [webserver.App]
	// returns an error or panics.
	PostRun lifecycle.Hook
}

// WithLifecycleHooks wraps a given [webserver.App] in an implementation
// that runs [lifecycle.Hook]s around the execution of app.Run.
func WithLifecycleHooks(app webserver.App, lc Lifecycle) webserver.App {
	return webserver.AppFunc(func(ctx context.Context) (err error) {
		defer runPostRunHook(ctx, lc.PostRun, &err)
		return app.Run(ctx)
	})
}

func runPostRunHook(ctx context.Context, hook lifecycle.Hook, err *error) {
	if hook == nil {
		return
	}

	// the app context is usually cancelled by now but hooks
	// such as flushing spans still need to reach the network
	hookErr := hook.Run(context.WithoutCancel(ctx))
	*err = errors.Join(*err, hookErr)
}
