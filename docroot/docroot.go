// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package docroot maps request paths onto files below a document root.
package docroot

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/z5labs/webserver/internal/ioutil"
)

// DefaultIndexFile is served when a path names a directory.
const DefaultIndexFile = "index.html"

// DefaultContentType is used for extensions missing from the type table.
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".txt":  "text/plain",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
}

// ContentType returns the media type for the extension of name.
func ContentType(name string) string {
	ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return DefaultContentType
	}
	return ct
}

// Resource is the outcome of resolving a path. The zero value is
// a not found outcome.
type Resource struct {
	Payload     []byte
	ContentType string

	// Name is the file that was read, relative to the root.
	Name string

	found bool
}

// NotFound is the outcome for any path which can not be served.
var NotFound = Resource{}

// Found reports whether the path resolved to a readable file.
func (r Resource) Found() bool {
	return r.found
}

// Option configures a [Resolver].
type Option func(*Resolver)

// IndexFile overrides [DefaultIndexFile].
func IndexFile(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.index = name
		}
	}
}

// Resolver reads files below a single root directory through an
// [fs.FS]. It is safe for concurrent use.
type Resolver struct {
	root     string
	realRoot string
	fsys     fs.FS
	index    string
}

// New returns a [Resolver] serving files below root.
func New(root string, opts ...Option) *Resolver {
	r := &Resolver{
		root:  root,
		index: DefaultIndexFile,
	}
	if abs, err := filepath.Abs(root); err == nil {
		r.root = abs
	}
	r.realRoot = r.root
	if resolved, err := filepath.EvalSymlinks(r.root); err == nil {
		r.realRoot = resolved
	}
	r.fsys = os.DirFS(r.root)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the absolute document root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve reads the file named by path. Paths with a ".." segment,
// paths whose target, after following symlinks, lies outside the root
// and missing or unreadable files all yield [NotFound].
func (r *Resolver) Resolve(urlPath string) Resource {
	if hasDotDot(urlPath) {
		return NotFound
	}

	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return NotFound
	}

	info, err := fs.Stat(r.fsys, name)
	if err != nil {
		return NotFound
	}
	if info.IsDir() {
		name = path.Join(name, r.index)
		info, err = fs.Stat(r.fsys, name)
		if err != nil {
			return NotFound
		}
	}
	if !info.Mode().IsRegular() || !r.contains(name) {
		return NotFound
	}

	f, err := r.fsys.Open(name)
	if err != nil {
		return NotFound
	}
	b, err := ioutil.ReadAllAndTryClose(f)
	if err != nil {
		return NotFound
	}

	res := Resource{
		Payload:     b,
		ContentType: ContentType(name),
		Name:        name,
		found:       true,
	}
	return res
}

// contains reports whether name, with every symlink followed,
// still lies below the root.
func (r *Resolver) contains(name string) bool {
	resolved, err := filepath.EvalSymlinks(filepath.Join(r.root, filepath.FromSlash(name)))
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(r.realRoot, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func hasDotDot(urlPath string) bool {
	if !strings.Contains(urlPath, "..") {
		return false
	}
	for _, seg := range strings.FieldsFunc(urlPath, isSlash) {
		if seg == ".." {
			return true
		}
	}
	return false
}

func isSlash(r rune) bool {
	return r == '/' || r == '\\'
}
