// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// ErrListenerClosed is returned by [Listener.Accept] once the
// listener has been closed.
var ErrListenerClosed = errors.New("server: listener closed")

// BindError is returned when the listening socket can not be bound,
// for example because the port is taken or privileged.
type BindError struct {
	Addr  string
	Cause error
}

// Error implements the [error] interface.
func (e BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %s", e.Addr, e.Cause)
}

// Unwrap allows [errors.Is] and [errors.As] to reach the cause.
func (e BindError) Unwrap() error {
	return e.Cause
}

// Listener owns a listening TCP socket and closes it exactly once.
type Listener struct {
	ls     net.Listener
	closed atomic.Bool

	once     sync.Once
	closeErr error
}

// Listen binds addr for TCP.
func Listen(ctx context.Context, addr string) (*Listener, error) {
	var lc net.ListenConfig
	ls, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, BindError{Addr: addr, Cause: err}
	}
	return NewListener(ls), nil
}

// NewListener takes ownership of an already bound listener.
func NewListener(ls net.Listener) *Listener {
	return &Listener{ls: ls}
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ls.Addr()
}

// Accept blocks until a client connects. After [Listener.Close] it
// returns [ErrListenerClosed], including for calls already blocked.
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.ls.Accept()
	if err == nil {
		return conn, nil
	}
	if l.closed.Load() || errors.Is(err, net.ErrClosed) {
		return nil, ErrListenerClosed
	}
	return nil, err
}

// Close closes the socket. Only the first call has any effect and
// every call returns its result.
func (l *Listener) Close() error {
	l.once.Do(func() {
		l.closed.Store(true)
		l.closeErr = l.ls.Close()
	})
	return l.closeErr
}
