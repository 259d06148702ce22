// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package appbuilder

import (
	"context"
	"errors"

	"github.com/z5labs/webserver"
	"github.com/z5labs/webserver/app"
	"github.com/z5labs/webserver/lifecycle"

	"go.opentelemetry.io/otel"
)

// OTelInitializer represents anything which can initialize the OTel SDK.
type OTelInitializer interface {
	InitializeOTel(context.Context) error
}

// OTel is a [webserver.AppBuilder] middleware which initializes the OTel SDK.
// It also ensures the global tracer provider is shutdown, flushing any
// buffered spans, once the built [webserver.App] stops running.
//
// The shutdown is registered on the [lifecycle.Context] found in ctx,
// if any, and otherwise wrapped around the built app.
func OTel[T OTelInitializer](builder webserver.AppBuilder[T]) webserver.AppBuilder[T] {
	return webserver.AppBuilderFunc[T](func(ctx context.Context, cfg T) (webserver.App, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		err := cfg.InitializeOTel(ctx)
		if err != nil {
			return nil, err
		}

		onPostRun := tryShutdown(otel.GetTracerProvider())

		base, err := builder.Build(ctx, cfg)
		if err != nil {
			shutdownErr := onPostRun.Run(ctx)
			return nil, errors.Join(err, shutdownErr)
		}

		lc, ok := lifecycle.FromContext(ctx)
		if !ok {
			return app.WithLifecycleHooks(base, app.Lifecycle{PostRun: onPostRun}), nil
		}
		lc.OnPostRun(onPostRun)
		return base, nil
	})
}

type shutdowner interface {
	Shutdown(context.Context) error
}

func tryShutdown(v any) lifecycle.HookFunc {
	return func(ctx context.Context) error {
		s, ok := v.(shutdowner)
		if !ok {
			return nil
		}
		return s.Shutdown(ctx)
	}
}
