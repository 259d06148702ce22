// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package response builds and serializes HTTP/1.0 responses.
package response

import (
	"io"
	"strconv"

	"github.com/z5labs/webserver/docroot"
)

// Protocol is written on every status line regardless of the
// version the client asked for.
const Protocol = "HTTP/1.0"

// ServerName is sent in the Server header.
const ServerName = "webserver"

// Status is a status code and its reason phrase.
type Status struct {
	Code   int
	Reason string
}

var (
	StatusOK             = Status{Code: 200, Reason: "OK"}
	StatusNotFound       = Status{Code: 404, Reason: "Not Found"}
	StatusNotImplemented = Status{Code: 501, Reason: "Not Implemented"}
)

func (s Status) String() string {
	return strconv.Itoa(s.Code) + " " + s.Reason
}

// Header is a single header line. Headers are written in slice order.
type Header struct {
	Name  string
	Value string
}

// Response is a complete response ready to be written once.
type Response struct {
	Status  Status
	Headers []Header
	Body    []byte
}

func newResponse(status Status, contentType string, body []byte) *Response {
	return &Response{
		Status: status,
		Headers: []Header{
			{Name: "Content-Length", Value: strconv.Itoa(len(body))},
			{Name: "Content-Type", Value: contentType},
			{Name: "Server", Value: ServerName},
		},
		Body: body,
	}
}

// errorResponse uses the status line text as a plain text body.
func errorResponse(status Status) *Response {
	return newResponse(status, "text/plain", []byte(status.String()+"\n"))
}

// Build answers a resolved resource with 200 OK and its payload,
// or 404 Not Found.
func Build(res docroot.Resource) *Response {
	if !res.Found() {
		return errorResponse(StatusNotFound)
	}
	return newResponse(StatusOK, res.ContentType, res.Payload)
}

// NotImplemented answers a request whose method is not served.
func NotImplemented() *Response {
	return errorResponse(StatusNotImplemented)
}

// Echo answers with the raw request as a plain text body.
func Echo(raw []byte) *Response {
	return newResponse(StatusOK, "text/plain", raw)
}

// Header returns the value of the first header with the given name.
func (r *Response) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// Bytes returns the wire form of the response.
func (r *Response) Bytes() []byte {
	size := len(Protocol) + 16 + len(r.Body)
	for _, h := range r.Headers {
		size += len(h.Name) + len(h.Value) + 4
	}

	b := make([]byte, 0, size)
	b = append(b, Protocol...)
	b = append(b, ' ')
	b = strconv.AppendInt(b, int64(r.Status.Code), 10)
	b = append(b, ' ')
	b = append(b, r.Status.Reason...)
	b = append(b, "\r\n"...)
	for _, h := range r.Headers {
		b = append(b, h.Name...)
		b = append(b, ": "...)
		b = append(b, h.Value...)
		b = append(b, "\r\n"...)
	}
	b = append(b, "\r\n"...)
	b = append(b, r.Body...)
	return b
}

// WriteTo writes the head and body with a single call to w.Write so
// a body is never sent without its headers.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}
