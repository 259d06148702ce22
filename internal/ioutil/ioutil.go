// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package ioutil reads files and config streams to completion and
// releases them in one step.
package ioutil

import (
	"errors"
	"fmt"
	"io"
)

// CloseError is returned when everything was read but the
// underlying reader failed to close.
type CloseError struct {
	Cause error
}

// Error implements the [error] interface.
func (e CloseError) Error() string {
	return fmt.Sprintf("failed to close reader: %s", e.Cause)
}

// Unwrap allows [errors.Is] and [errors.As] to reach the cause.
func (e CloseError) Unwrap() error {
	return e.Cause
}

// ReadAllAndTryClose reads r until EOF. If r is also an [io.Closer]
// it is closed afterwards, even when reading failed.
func ReadAllAndTryClose(r io.Reader) (_ []byte, err error) {
	defer tryClose(&err, r)
	return io.ReadAll(r)
}

func tryClose(err *error, r io.Reader) {
	rc, ok := r.(io.Closer)
	if !ok {
		return
	}

	closeErr := rc.Close()
	if closeErr == nil {
		return
	}
	*err = errors.Join(*err, CloseError{Cause: closeErr})
}
