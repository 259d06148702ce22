// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/z5labs/webserver/internal/ioutil"

	"gopkg.in/yaml.v3"
)

// Format names the encoding of a config document.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// FormatOf picks the format from the extension of name.
// Anything other than .json is treated as YAML.
func FormatOf(name string) Format {
	if strings.EqualFold(path.Ext(name), ".json") {
		return JSON
	}
	return YAML
}

// DecodeError occurs when a config document is not valid in its format.
type DecodeError struct {
	Format Format
	Cause  error
}

// Error implements the [error] interface.
func (e DecodeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Format, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e DecodeError) Unwrap() error {
	return e.Cause
}

// Reader is a [Source] decoding a config document from an [io.Reader].
// If the reader is also an [io.Closer] it is closed once read.
type Reader struct {
	r      io.Reader
	format Format
}

// FromYaml returns a source which applies the YAML document read from r.
func FromYaml(r io.Reader) Reader {
	return Reader{r: r, format: YAML}
}

// FromJson returns a source which applies the JSON document read from r.
func FromJson(r io.Reader) Reader {
	return Reader{r: r, format: JSON}
}

// Apply implements the [Source] interface.
func (src Reader) Apply(store Store) error {
	b, err := ioutil.ReadAllAndTryClose(src.r)
	if err != nil {
		return err
	}
	return decode(src.format, b, store)
}

// FileError occurs when a config file can not be opened or read.
type FileError struct {
	Name  string
	Cause error
}

// Error implements the [error] interface.
func (e FileError) Error() string {
	return fmt.Sprintf("failed to read config file %s: %s", e.Name, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e FileError) Unwrap() error {
	return e.Cause
}

// FromFile returns a source for the file name within fsys. The format
// is picked by [FormatOf].
func FromFile(fsys fs.FS, name string) Source {
	return SourceFunc(func(store Store) error {
		f, err := fsys.Open(name)
		if err != nil {
			return FileError{Name: name, Cause: err}
		}
		b, err := ioutil.ReadAllAndTryClose(f)
		if err != nil {
			return FileError{Name: name, Cause: err}
		}
		return decode(FormatOf(name), b, store)
	})
}

func decode(format Format, b []byte, store Store) error {
	m := make(map[string]any)

	var err error
	switch format {
	case JSON:
		err = json.Unmarshal(b, &m)
	default:
		err = yaml.Unmarshal(b, &m)
	}
	if err != nil {
		return DecodeError{Format: format, Cause: err}
	}
	return Map(m).Apply(store)
}
