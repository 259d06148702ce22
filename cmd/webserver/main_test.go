// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/z5labs/webserver"
	"github.com/z5labs/webserver/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func freePort(t *testing.T) int {
	t.Helper()

	ls, err := net.Listen("tcp4", "0.0.0.0:0")
	require.NoError(t, err)
	defer ls.Close()
	return ls.Addr().(*net.TCPAddr).Port
}

func get(addr, path string, headers ...string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	err = conn.SetDeadline(time.Now().Add(5 * time.Second))
	if err != nil {
		return "", err
	}
	_, err = fmt.Fprintf(conn, "GET %s HTTP/1.1\r\n", path)
	if err != nil {
		return "", err
	}
	for _, h := range headers {
		_, err = fmt.Fprintf(conn, "%s\r\n", h)
		if err != nil {
			return "", err
		}
	}
	_, err = io.WriteString(conn, "\r\n")
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(conn)
	return string(b), err
}

func TestRootCmd(t *testing.T) {
	t.Run("will serve files until the context is cancelled", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "hello.html"), []byte("hello"), 0o644))
		port := freePort(t)

		var logs syncBuffer
		cmd := newRootCmd(&logs)
		cmd.SetArgs([]string{"-p", strconv.Itoa(port), "-d", root, "--verbose"})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errs := make(chan error, 1)
		go func() {
			errs <- cmd.ExecuteContext(ctx)
		}()

		addr := fmt.Sprintf("127.0.0.1:%d", port)
		var resp string
		require.Eventually(t, func() bool {
			var err error
			resp, err = get(addr, "/hello.html")
			return err == nil
		}, 5*time.Second, 20*time.Millisecond)
		assert.True(t, strings.HasPrefix(resp, "HTTP/1.0 200 OK\r\n"))
		assert.True(t, strings.HasSuffix(resp, "\r\n\r\nhello"))

		_, err := get(addr, "/missing.html", "Authorization: Bearer s3cret")
		require.NoError(t, err)

		cancel()
		select {
		case err := <-errs:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Fatal("command did not exit")
		}

		assert.Contains(t, logs.String(), "started service")
		assert.Contains(t, logs.String(), "received request")
		assert.Contains(t, logs.String(), "shut down service")
		assert.Contains(t, logs.String(), "Authorization: ****")
		assert.NotContains(t, logs.String(), "s3cret")
	})

	t.Run("will return a BindError", func(t *testing.T) {
		t.Run("if the port is already in use", func(t *testing.T) {
			taken, err := net.Listen("tcp4", "0.0.0.0:0")
			require.NoError(t, err)
			defer taken.Close()
			port := taken.Addr().(*net.TCPAddr).Port

			cmd := newRootCmd(io.Discard)
			cmd.SetArgs([]string{"--port", strconv.Itoa(port), "--root", t.TempDir()})
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)

			err = cmd.ExecuteContext(context.Background())

			var rerr webserver.AppRunError
			require.ErrorAs(t, err, &rerr)
			var berr server.BindError
			assert.ErrorAs(t, err, &berr)
		})
	})

	t.Run("will return an AppBuildError", func(t *testing.T) {
		t.Run("if the port is out of range", func(t *testing.T) {
			cmd := newRootCmd(io.Discard)
			cmd.SetArgs([]string{"-p", "70000"})
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)

			err := cmd.ExecuteContext(context.Background())

			var berr webserver.AppBuildError
			require.ErrorAs(t, err, &berr)
			var ierr InvalidConfigError
			assert.ErrorAs(t, err, &ierr)
		})
	})

	t.Run("will reject positional arguments", func(t *testing.T) {
		cmd := newRootCmd(io.Discard)
		cmd.SetArgs([]string{"extra"})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)

		err := cmd.ExecuteContext(context.Background())

		assert.Error(t, err)
	})
}
