// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiHook(t *testing.T) {
	t.Run("will run every hook in order", func(t *testing.T) {
		var calls []string
		record := func(name string) Hook {
			return HookFunc(func(ctx context.Context) error {
				calls = append(calls, name)
				return nil
			})
		}

		err := MultiHook(record("one"), nil, record("two")).Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two"}, calls)
	})

	t.Run("will return the only error as is", func(t *testing.T) {
		oneErr := errors.New("one")
		ran := false

		err := MultiHook(
			HookFunc(func(ctx context.Context) error { return oneErr }),
			HookFunc(func(ctx context.Context) error {
				ran = true
				return nil
			}),
		).Run(context.Background())

		assert.Equal(t, oneErr, err)
		assert.True(t, ran)
	})

	t.Run("will join multiple errors", func(t *testing.T) {
		oneErr := errors.New("one")
		twoErr := errors.New("two")

		err := MultiHook(
			HookFunc(func(ctx context.Context) error { return oneErr }),
			HookFunc(func(ctx context.Context) error { return twoErr }),
		).Run(context.Background())

		assert.ErrorIs(t, err, oneErr)
		assert.ErrorIs(t, err, twoErr)
	})
}

func TestContext(t *testing.T) {
	t.Run("will not be found in a plain context", func(t *testing.T) {
		_, ok := FromContext(context.Background())

		assert.False(t, ok)
	})

	t.Run("will run registered post run hooks", func(t *testing.T) {
		lc := &Context{}
		ctx := NewContext(context.Background(), lc)

		found, ok := FromContext(ctx)
		require.True(t, ok)

		ran := 0
		found.OnPostRun(HookFunc(func(ctx context.Context) error {
			ran++
			return nil
		}))
		found.OnPostRun(HookFunc(func(ctx context.Context) error {
			ran++
			return nil
		}))

		err := lc.PostRun().Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, ran)
	})
}
