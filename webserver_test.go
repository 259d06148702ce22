// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package webserver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/z5labs/webserver/config"
	"github.com/z5labs/webserver/lifecycle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	HTTP struct {
		Port uint   `config:"port"`
		Root string `config:"root"`
	} `config:"http"`
}

func TestRun(t *testing.T) {
	t.Run("will build and run the app with the unmarshalled config", func(t *testing.T) {
		var got testConfig
		builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
			got = cfg
			return AppFunc(func(ctx context.Context) error {
				return nil
			}), nil
		})

		err := Run(
			context.Background(),
			builder,
			config.FromYaml(strings.NewReader("http:\n  port: 80\n  root: /srv\n")),
			config.Map{"http": map[string]any{"port": 8080}},
		)

		require.NoError(t, err)
		assert.Equal(t, uint(8080), got.HTTP.Port)
		assert.Equal(t, "/srv", got.HTTP.Root)
	})

	t.Run("will return a ConfigReadError", func(t *testing.T) {
		t.Run("if a source fails", func(t *testing.T) {
			srcErr := errors.New("failed to read")
			builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
				return nil, nil
			})

			err := Run(context.Background(), builder, config.SourceFunc(func(config.Store) error {
				return srcErr
			}))

			var rerr ConfigReadError
			require.ErrorAs(t, err, &rerr)
			assert.ErrorIs(t, err, srcErr)
			assert.NotEmpty(t, rerr.Error())
		})
	})

	t.Run("will return a ConfigUnmarshalError", func(t *testing.T) {
		t.Run("if the config does not fit the type", func(t *testing.T) {
			builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
				return nil, nil
			})

			err := Run(context.Background(), builder, config.Map{"http": map[string]any{"port": "eighty"}})

			var uerr ConfigUnmarshalError
			require.ErrorAs(t, err, &uerr)
			assert.NotEmpty(t, uerr.Error())
		})
	})

	t.Run("will return an AppBuildError", func(t *testing.T) {
		t.Run("if the builder fails", func(t *testing.T) {
			buildErr := errors.New("failed to build")
			builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
				return nil, buildErr
			})

			err := Run(context.Background(), builder)

			var berr AppBuildError
			require.ErrorAs(t, err, &berr)
			assert.ErrorIs(t, err, buildErr)
		})
	})

	t.Run("will return an AppRunError", func(t *testing.T) {
		t.Run("if the app fails", func(t *testing.T) {
			runErr := errors.New("failed to run")
			builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
				return AppFunc(func(ctx context.Context) error {
					return runErr
				}), nil
			})

			err := Run(context.Background(), builder)

			var aerr AppRunError
			require.ErrorAs(t, err, &aerr)
			assert.ErrorIs(t, err, runErr)
		})
	})

	t.Run("will run post run hooks registered while building", func(t *testing.T) {
		t.Run("after the app returns", func(t *testing.T) {
			var calls []string
			builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
				lc, ok := lifecycle.FromContext(ctx)
				require.True(t, ok)
				lc.OnPostRun(lifecycle.HookFunc(func(ctx context.Context) error {
					calls = append(calls, "post run")
					return nil
				}))
				return AppFunc(func(ctx context.Context) error {
					calls = append(calls, "run")
					return nil
				}), nil
			})

			err := Run(context.Background(), builder)

			require.NoError(t, err)
			assert.Equal(t, []string{"run", "post run"}, calls)
		})

		t.Run("and join their errors with the build error", func(t *testing.T) {
			buildErr := errors.New("failed to build")
			hookErr := errors.New("failed to flush")
			builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
				lc, _ := lifecycle.FromContext(ctx)
				lc.OnPostRun(lifecycle.HookFunc(func(ctx context.Context) error {
					return hookErr
				}))
				return nil, buildErr
			})

			err := Run(context.Background(), builder)

			var perr PostRunError
			require.ErrorAs(t, err, &perr)
			assert.ErrorIs(t, err, buildErr)
			assert.ErrorIs(t, err, hookErr)
		})
	})
}
