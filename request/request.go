// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package request parses the head of an HTTP/1.x request read off a
// raw connection.
package request

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxHeaderBytes bounds the request line plus headers
// unless overridden with [MaxHeaderBytes].
const DefaultMaxHeaderBytes = 8 << 10

// Header is a single header line in the order it was received.
type Header struct {
	Name  string
	Value string
}

// Request is the parsed head of a request.
type Request struct {
	Method  string
	Path    string
	Version string
	Headers []Header

	// Raw holds every byte consumed while parsing.
	Raw []byte
}

// Header returns the value of the first header matching name,
// compared case-insensitively.
func (r *Request) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// MalformedRequestError is returned when the received bytes are not
// a request head this package understands.
type MalformedRequestError struct {
	Reason string
	Line   string
	Cause  error
}

// Error implements the [error] interface.
func (e MalformedRequestError) Error() string {
	if e.Line == "" {
		return "malformed request: " + e.Reason
	}
	return fmt.Sprintf("malformed request: %s: %q", e.Reason, e.Line)
}

// Unwrap allows [errors.Is] and [errors.As] to reach the cause.
func (e MalformedRequestError) Unwrap() error {
	return e.Cause
}

// ReadError wraps an I/O failure on the underlying reader,
// such as a read deadline expiring.
type ReadError struct {
	Cause error
}

// Error implements the [error] interface.
func (e ReadError) Error() string {
	return fmt.Sprintf("failed to read request: %s", e.Cause)
}

// Unwrap allows [errors.Is] and [errors.As] to reach the cause.
func (e ReadError) Unwrap() error {
	return e.Cause
}

// Option configures [Parse].
type Option func(*parser)

// MaxHeaderBytes overrides [DefaultMaxHeaderBytes].
func MaxHeaderBytes(n int) Option {
	return func(p *parser) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

type parser struct {
	r        *bufio.Reader
	maxBytes int
	raw      []byte
}

// Parse reads a request line followed by headers up to the empty line
// which ends the head. Header lines which are not "Name: value" are
// skipped but still count toward the size limit and stay in Raw. If
// the peer stops sending after the request line the request is
// returned with whatever headers were complete.
//
// Any method is accepted. An empty path is reported as "/" and any
// query or fragment is dropped from it.
func Parse(r *bufio.Reader, opts ...Option) (*Request, error) {
	p := &parser{
		r:        r,
		maxBytes: DefaultMaxHeaderBytes,
	}
	for _, opt := range opts {
		opt(p)
	}

	line, err := p.readLine()
	if errors.Is(err, io.EOF) {
		return nil, MalformedRequestError{
			Reason: "connection closed before request line",
			Line:   string(line),
			Cause:  io.ErrUnexpectedEOF,
		}
	}
	if err != nil {
		return nil, err
	}

	req, err := parseRequestLine(string(line))
	if err != nil {
		return nil, err
	}

	for {
		line, err := p.readLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			break
		}

		h, ok := parseHeader(string(line))
		if !ok {
			continue
		}
		req.Headers = append(req.Headers, h)
	}

	req.Raw = p.raw
	return req, nil
}

// readLine returns the next line without its terminator. It returns
// io.EOF along with any unterminated bytes if the reader runs dry.
func (p *parser) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := p.r.ReadSlice('\n')
		p.raw = append(p.raw, chunk...)
		if len(p.raw) > p.maxBytes {
			return nil, MalformedRequestError{
				Reason: fmt.Sprintf("request head exceeds %d bytes", p.maxBytes),
			}
		}
		line = append(line, chunk...)

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return line, io.EOF
		}
		if err != nil {
			return nil, ReadError{Cause: err}
		}

		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		return line, nil
	}
}

func parseRequestLine(line string) (*Request, error) {
	fields := strings.Split(line, " ")
	if len(fields) != 3 {
		return nil, MalformedRequestError{
			Reason: "request line must be METHOD SP PATH SP VERSION",
			Line:   line,
		}
	}

	method, path, version := fields[0], fields[1], fields[2]
	if method == "" {
		return nil, MalformedRequestError{Reason: "empty method", Line: line}
	}
	if !strings.HasPrefix(version, "HTTP/") {
		return nil, MalformedRequestError{Reason: "unsupported protocol version", Line: line}
	}
	if path == "" {
		path = "/"
	}
	if path[0] != '/' {
		return nil, MalformedRequestError{Reason: "path must start with /", Line: line}
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	req := &Request{
		Method:  method,
		Path:    path,
		Version: version,
	}
	return req, nil
}

// parseHeader splits a "Name: value" line. Lines without a colon or
// without a name are reported as not ok and dropped by the caller.
func parseHeader(line string) (Header, bool) {
	name, value, ok := strings.Cut(line, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Header{}, false
	}
	h := Header{
		Name:  name,
		Value: strings.Trim(value, " \t"),
	}
	return h, true
}
