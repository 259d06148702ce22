// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"bytes"
	"fmt"
	"io"
	"text/template"

	"github.com/z5labs/webserver/internal/ioutil"
)

// TemplateError occurs when a config template fails to parse or execute.
type TemplateError struct {
	Cause error
}

// Error implements the [error] interface.
func (e TemplateError) Error() string {
	return fmt.Sprintf("failed to render config template: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e TemplateError) Unwrap() error {
	return e.Cause
}

// FromTemplate renders the text/template read from r with funcs
// available and applies the result as a document in format.
func FromTemplate(r io.Reader, format Format, funcs template.FuncMap) Source {
	return SourceFunc(func(store Store) error {
		b, err := ioutil.ReadAllAndTryClose(r)
		if err != nil {
			return err
		}

		tmpl, err := template.New("config").Funcs(funcs).Parse(string(b))
		if err != nil {
			return TemplateError{Cause: err}
		}

		var buf bytes.Buffer
		err = tmpl.Execute(&buf, nil)
		if err != nil {
			return TemplateError{Cause: err}
		}
		return decode(format, buf.Bytes(), store)
	})
}
