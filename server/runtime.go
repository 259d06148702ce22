// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package server implements a static file server speaking a small
// subset of HTTP directly over TCP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/z5labs/webserver/docroot"
	"github.com/z5labs/webserver/lifecycle"
	"github.com/z5labs/webserver/pkg/noop"
	"github.com/z5labs/webserver/pkg/slogfield"
	"github.com/z5labs/webserver/request"

	"golang.org/x/sync/errgroup"
)

// Defaults applied by [NewRuntime].
const (
	DefaultPort         = 80
	DefaultReadTimeout  = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultDrainTimeout = 5 * time.Second
)

// Resolver maps a request path to a resource.
type Resolver interface {
	Resolve(path string) docroot.Resource
}

// DrainTimeoutError is logged when connections are still being handled
// once the drain timeout elapses.
type DrainTimeoutError struct {
	Timeout   time.Duration
	Remaining int
}

// Error implements the [error] interface.
func (e DrainTimeoutError) Error() string {
	return fmt.Sprintf("drain timed out after %s with %d connection(s) in flight", e.Timeout, e.Remaining)
}

type runtimeOptions struct {
	port           uint
	listener       net.Listener
	root           string
	rootOpts       []docroot.Option
	resolver       Resolver
	readTimeout    time.Duration
	writeTimeout   time.Duration
	drainTimeout   time.Duration
	maxHeaderBytes int
	echo           bool
	logHandler     slog.Handler
}

// RuntimeOption
type RuntimeOption func(*runtimeOptions)

// ListenOnPort will configure the server to listen on the given port
// on all interfaces. Port 0 picks a free port.
//
// Default port is 80.
func ListenOnPort(port uint) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.port = port
	}
}

// FromListener serves connections from an already bound listener
// instead of binding a port.
func FromListener(ls net.Listener) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.listener = ls
	}
}

// DocumentRoot sets the directory files are served from.
//
// Default root is the working directory.
func DocumentRoot(root string, opts ...docroot.Option) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.root = root
		ro.rootOpts = opts
	}
}

// FileResolver replaces the document root with a custom [Resolver].
func FileResolver(r Resolver) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.resolver = r
	}
}

// ReadTimeout bounds how long a client has to send its request head.
func ReadTimeout(d time.Duration) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.readTimeout = d
	}
}

// WriteTimeout bounds how long writing a response may take.
func WriteTimeout(d time.Duration) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.writeTimeout = d
	}
}

// DrainTimeout bounds how long in-flight connections may run once
// shutdown starts.
func DrainTimeout(d time.Duration) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.drainTimeout = d
	}
}

// MaxHeaderBytes bounds the size of a request head.
func MaxHeaderBytes(n int) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.maxHeaderBytes = n
	}
}

// Echo answers every well formed request with its own raw bytes.
func Echo(enabled bool) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.echo = enabled
	}
}

// LogHandler
func LogHandler(h slog.Handler) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.logHandler = h
	}
}

// Runtime accepts connections and serves files until its context
// is cancelled.
type Runtime struct {
	addr     string
	listener net.Listener
	resolver Resolver

	readTimeout    time.Duration
	writeTimeout   time.Duration
	drainTimeout   time.Duration
	maxHeaderBytes int
	echo           bool

	log   *slog.Logger
	state *State
}

// NewRuntime
func NewRuntime(opts ...RuntimeOption) *Runtime {
	ro := &runtimeOptions{
		port:           DefaultPort,
		root:           ".",
		readTimeout:    DefaultReadTimeout,
		writeTimeout:   DefaultWriteTimeout,
		drainTimeout:   DefaultDrainTimeout,
		maxHeaderBytes: request.DefaultMaxHeaderBytes,
		logHandler:     noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(ro)
	}

	resolver := ro.resolver
	if resolver == nil {
		resolver = docroot.New(ro.root, ro.rootOpts...)
	}

	rt := &Runtime{
		addr:           fmt.Sprintf("0.0.0.0:%d", ro.port),
		listener:       ro.listener,
		resolver:       resolver,
		readTimeout:    ro.readTimeout,
		writeTimeout:   ro.writeTimeout,
		drainTimeout:   ro.drainTimeout,
		maxHeaderBytes: ro.maxHeaderBytes,
		echo:           ro.echo,
		log:            slog.New(ro.logHandler),
		state:          newState(),
	}
	return rt
}

// State returns the state shared by the runtime's connections.
func (rt *Runtime) State() *State {
	return rt.state
}

// Run binds the listener and serves connections until ctx is cancelled.
// It then stops accepting, waits up to the drain timeout for in-flight
// connections and force closes whatever remains. A drain timeout is
// logged rather than returned. Run may only be called once.
func (rt *Runtime) Run(ctx context.Context) error {
	ls, err := rt.listen(ctx)
	if err != nil {
		rt.log.ErrorContext(ctx, "failed to listen for connections", slogfield.Error(err))
		return errors.Join(err, rt.state.lifecycle.Transition(lifecycle.Stopped))
	}
	rt.state.listener.Store(ls)

	err = rt.state.lifecycle.Transition(lifecycle.Running)
	if err != nil {
		ls.Close()
		return err
	}
	rt.log.InfoContext(
		ctx,
		"started service",
		slogfield.Addr("addr", ls.Addr()),
	)

	acceptDone := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(acceptDone)
		return rt.serve(gctx, ls)
	})
	g.Go(func() error {
		<-gctx.Done()
		return rt.shutdown(ls, acceptDone)
	})

	err = g.Wait()
	if err == nil {
		return nil
	}
	rt.log.Error("service encountered unexpected error", slogfield.Error(err))
	return err
}

func (rt *Runtime) listen(ctx context.Context) (*Listener, error) {
	if rt.listener != nil {
		return NewListener(rt.listener), nil
	}
	return Listen(ctx, rt.addr)
}

func (rt *Runtime) serve(ctx context.Context, ls *Listener) error {
	connCtx := context.WithoutCancel(ctx)

	var delay time.Duration
	for {
		conn, err := ls.Accept()
		if errors.Is(err, ErrListenerClosed) {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err != nil {
			delay = backoff(delay)
			rt.log.WarnContext(
				ctx,
				"failed to accept connection",
				slogfield.Error(err),
				slogfield.Duration("retry_in", delay),
			)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		id := rt.state.track(conn)
		go rt.handleConn(connCtx, id, conn)
	}
}

// backoff doubles the delay between failed accepts up to one second.
func backoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	return min(2*d, time.Second)
}

func (rt *Runtime) shutdown(ls *Listener, acceptDone <-chan struct{}) error {
	err := rt.state.lifecycle.Transition(lifecycle.Draining)
	if err != nil {
		return err
	}
	rt.log.Info(
		"shutting down service",
		slogfield.Int64("in_flight", rt.state.InFlight()),
		slogfield.Duration("drain_timeout", rt.drainTimeout),
	)

	err = ls.Close()
	if err != nil {
		rt.log.Warn("failed to close listener", slogfield.Error(err))
	}
	<-acceptDone

	idle := rt.state.idle()
	timer := time.NewTimer(rt.drainTimeout)
	defer timer.Stop()

	select {
	case <-idle:
	case <-timer.C:
		remaining := rt.state.closeAll()
		rt.log.Error(
			"forcing remaining connections closed",
			slogfield.Error(DrainTimeoutError{
				Timeout:   rt.drainTimeout,
				Remaining: remaining,
			}),
		)
		<-idle
	}

	defer rt.log.Info("shut down service")
	return rt.state.lifecycle.Transition(lifecycle.Stopped)
}
