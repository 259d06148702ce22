// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
	"testing"

	"github.com/z5labs/webserver"
	"github.com/z5labs/webserver/internal/try"
	"github.com/z5labs/webserver/lifecycle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the underlying App returns an error", func(t *testing.T) {
			appErr := errors.New("failed to run")
			app := Recover(webserver.AppFunc(func(ctx context.Context) error {
				return appErr
			}))

			err := app.Run(context.Background())

			assert.Equal(t, appErr, err)
		})

		t.Run("if the underlying App panics with an error value", func(t *testing.T) {
			appErr := errors.New("failed to run")
			app := Recover(webserver.AppFunc(func(ctx context.Context) error {
				panic(appErr)
			}))

			err := app.Run(context.Background())

			assert.ErrorIs(t, err, appErr)
		})

		t.Run("if the underlying App panics with a non-error value", func(t *testing.T) {
			app := Recover(webserver.AppFunc(func(ctx context.Context) error {
				panic("hello world")
			}))

			err := app.Run(context.Background())

			var perr try.PanicError
			require.ErrorAs(t, err, &perr)
			assert.NotEmpty(t, perr.Error())
			assert.Equal(t, "hello world", perr.Value)
		})
	})
}

func TestWithSignalNotifications(t *testing.T) {
	t.Run("will propagate context cancellation", func(t *testing.T) {
		t.Run("if the parent context is cancelled", func(t *testing.T) {
			app := WithSignalNotifications(webserver.AppFunc(func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := app.Run(ctx)

			assert.ErrorIs(t, err, context.Canceled)
		})
	})
}

func TestWithLifecycleHooks(t *testing.T) {
	t.Run("will return error", func(t *testing.T) {
		t.Run("if the underlying app fails", func(t *testing.T) {
			baseErr := errors.New("failed to run app")
			base := webserver.AppFunc(func(ctx context.Context) error {
				return baseErr
			})

			app := WithLifecycleHooks(base, Lifecycle{})

			err := app.Run(context.Background())

			assert.ErrorIs(t, err, baseErr)
		})

		t.Run("if the Lifecycle.PostRun hook fails", func(t *testing.T) {
			base := webserver.AppFunc(func(ctx context.Context) error {
				return nil
			})

			postRunErr := errors.New("failed to post run")
			app := WithLifecycleHooks(base, Lifecycle{
				PostRun: lifecycle.HookFunc(func(ctx context.Context) error {
					return postRunErr
				}),
			})

			err := app.Run(context.Background())

			assert.ErrorIs(t, err, postRunErr)
		})
	})

	t.Run("will run the PostRun hook", func(t *testing.T) {
		t.Run("if the underlying app panics", func(t *testing.T) {
			ran := false
			app := Recover(WithLifecycleHooks(
				webserver.AppFunc(func(ctx context.Context) error {
					panic("boom")
				}),
				Lifecycle{
					PostRun: lifecycle.HookFunc(func(ctx context.Context) error {
						ran = true
						return nil
					}),
				},
			))

			err := app.Run(context.Background())

			var perr try.PanicError
			assert.ErrorAs(t, err, &perr)
			assert.True(t, ran)
		})

		t.Run("with a context which is not cancelled", func(t *testing.T) {
			var hookCtxErr error
			app := WithLifecycleHooks(
				webserver.AppFunc(func(ctx context.Context) error {
					return nil
				}),
				Lifecycle{
					PostRun: lifecycle.HookFunc(func(ctx context.Context) error {
						hookCtxErr = ctx.Err()
						return nil
					}),
				},
			)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := app.Run(ctx)

			require.NoError(t, err)
			assert.NoError(t, hookCtxErr)
		})
	})
}
