// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/z5labs/webserver/lifecycle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState(t *testing.T) {
	t.Run("will start in the starting state without an address", func(t *testing.T) {
		s := newState()

		assert.Equal(t, lifecycle.Starting, s.Lifecycle())
		assert.Nil(t, s.Addr())
		assert.Equal(t, int64(0), s.InFlight())
	})

	t.Run("will count tracked connections until they are done", func(t *testing.T) {
		s := newState()
		a, _ := net.Pipe()
		b, _ := net.Pipe()

		idA := s.track(a)
		idB := s.track(b)
		assert.NotEqual(t, idA, idB)
		assert.Equal(t, int64(2), s.InFlight())

		idle := s.idle()
		s.done(idA)
		select {
		case <-idle:
			t.Fatal("idle before every connection was done")
		default:
		}

		s.done(idB)
		select {
		case <-idle:
		case <-time.After(5 * time.Second):
			t.Fatal("never became idle")
		}
		assert.Equal(t, int64(0), s.InFlight())
	})

	t.Run("will close every tracked connection", func(t *testing.T) {
		s := newState()
		server, client := net.Pipe()
		defer client.Close()

		id := s.track(server)
		defer s.done(id)

		n := s.closeAll()
		require.Equal(t, 1, n)

		_, err := server.Write([]byte("x"))
		assert.ErrorIs(t, err, io.ErrClosedPipe)
	})
}
