// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package appbuilder provides middleware for a [webserver.AppBuilder].
package appbuilder

import (
	"context"

	"github.com/z5labs/webserver"
	"github.com/z5labs/webserver/internal/try"
)

// Recover will wrap the given [webserver.AppBuilder] with panic recovery.
func Recover[T any](builder webserver.AppBuilder[T]) webserver.AppBuilder[T] {
	return webserver.AppBuilderFunc[T](func(ctx context.Context, cfg T) (_ webserver.App, err error) {
		defer try.Recover(&err)
		return builder.Build(ctx, cfg)
	})
}
