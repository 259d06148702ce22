// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/z5labs/webserver/internal/try"
	"github.com/z5labs/webserver/pkg/slogfield"
	"github.com/z5labs/webserver/request"
	"github.com/z5labs/webserver/response"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/z5labs/webserver/server"

// WriteError wraps a failure to send a response.
type WriteError struct {
	Cause error
}

// Error implements the [error] interface.
func (e WriteError) Error() string {
	return fmt.Sprintf("failed to write response: %s", e.Cause)
}

// Unwrap allows [errors.Is] and [errors.As] to reach the cause.
func (e WriteError) Unwrap() error {
	return e.Cause
}

// handleConn serves exactly one request and always closes conn.
// Nothing it does can fail the accept loop.
func (rt *Runtime) handleConn(ctx context.Context, id uint64, conn net.Conn) {
	defer rt.state.done(id)
	defer conn.Close()

	ctx, span := otel.Tracer(tracerName).Start(
		ctx,
		"handle connection",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("net.peer.addr", conn.RemoteAddr().String()),
		),
	)
	defer span.End()

	log := rt.log.With(
		slog.Uint64("conn_id", id),
		slogfield.RemoteAddr(conn.RemoteAddr()),
	)

	err := rt.serveConn(ctx, log, span, conn)
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var perr try.PanicError
	var merr request.MalformedRequestError
	switch {
	case errors.As(err, &perr):
		log.ErrorContext(ctx, "recovered from panic while handling connection", slogfield.Error(err))
	case errors.As(err, &merr):
		log.WarnContext(ctx, "closing connection after malformed request", slogfield.Error(err))
	default:
		log.WarnContext(ctx, "closing connection after i/o error", slogfield.Error(err))
	}
}

func (rt *Runtime) serveConn(ctx context.Context, log *slog.Logger, span trace.Span, conn net.Conn) (err error) {
	defer try.Recover(&err)

	err = conn.SetReadDeadline(time.Now().Add(rt.readTimeout))
	if err != nil {
		return err
	}

	req, err := request.Parse(
		bufio.NewReader(conn),
		request.MaxHeaderBytes(rt.maxHeaderBytes),
	)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.target", req.Path),
	)
	log.DebugContext(ctx, "received request", slogfield.String("raw", string(req.Raw)))

	resp, file := rt.respond(req)
	span.SetAttributes(attribute.Int("http.status_code", resp.Status.Code))

	err = conn.SetWriteDeadline(time.Now().Add(rt.writeTimeout))
	if err != nil {
		return err
	}
	n, err := resp.WriteTo(conn)
	if err != nil {
		return WriteError{Cause: err}
	}

	log.InfoContext(
		ctx,
		"served request",
		slogfield.String("method", req.Method),
		slogfield.String("path", req.Path),
		slogfield.String("version", req.Version),
		slogfield.Int("status", resp.Status.Code),
		slogfield.Int64("bytes", n),
		slogfield.String("file", file),
		slogfield.String("user_agent", userAgent(req)),
	)
	return nil
}

func userAgent(req *request.Request) string {
	ua, _ := req.Header("User-Agent")
	return ua
}

// respond picks the response for req along with the name of the
// file it serves, if any.
func (rt *Runtime) respond(req *request.Request) (*response.Response, string) {
	if rt.echo {
		return response.Echo(req.Raw), ""
	}
	if req.Method != "GET" {
		return response.NotImplemented(), ""
	}
	res := rt.resolver.Resolve(req.Path)
	return response.Build(res), res.Name
}
