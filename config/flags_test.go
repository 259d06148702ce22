// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("webserver", pflag.ContinueOnError)
	fs.IntP("port", "p", 80, "")
	fs.StringP("root", "d", ".", "")
	fs.Bool("echo", false, "")
	fs.Bool("unmapped", false, "")
	return fs
}

var flagKeys = map[string]string{
	"port": "http.port",
	"root": "http.root",
	"echo": "http.echo",
}

func TestFromFlags(t *testing.T) {
	t.Run("will only apply flags set on the command line", func(t *testing.T) {
		fs := newFlagSet()
		require.NoError(t, fs.Parse([]string{"-p", "8080", "--echo", "--unmapped"}))

		m, err := Read(
			FromYaml(strings.NewReader("http:\n  port: 9000\n  root: /from/yaml\n")),
			FromFlags(fs, flagKeys),
		)
		require.NoError(t, err)

		var cfg httpConfig
		require.NoError(t, m.Unmarshal(&cfg))
		assert.Equal(t, 8080, cfg.HTTP.Port)
		assert.Equal(t, "/from/yaml", cfg.HTTP.Root)
		assert.True(t, cfg.HTTP.Echo)
	})

	t.Run("will set nothing if no flag was set", func(t *testing.T) {
		fs := newFlagSet()
		require.NoError(t, fs.Parse(nil))

		store := storeFunc(func(key string, v any) error {
			t.Errorf("unexpected key: %s", key)
			return nil
		})

		err := FromFlags(fs, flagKeys).Apply(store)
		require.NoError(t, err)
	})

	t.Run("will stop at the first store error", func(t *testing.T) {
		fs := newFlagSet()
		require.NoError(t, fs.Parse([]string{"--port", "8080", "--root", "/srv"}))

		setErr := errors.New("failed to set")
		calls := 0
		store := storeFunc(func(string, any) error {
			calls++
			return setErr
		})

		err := FromFlags(fs, flagKeys).Apply(store)

		assert.ErrorIs(t, err, setErr)
		assert.Equal(t, 1, calls)
	})
}
