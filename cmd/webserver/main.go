// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command webserver serves static files from a document root.
//
//	webserver [-p|--port N] [-d|--root DIR] [-c|--config FILE] [--echo] [-v|--verbose]
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/z5labs/webserver"
	"github.com/z5labs/webserver/app"
	"github.com/z5labs/webserver/appbuilder"
	"github.com/z5labs/webserver/docroot"
	"github.com/z5labs/webserver/pkg/maskslog"
	"github.com/z5labs/webserver/pkg/otelslog"
	"github.com/z5labs/webserver/server"

	"github.com/spf13/cobra"
)

func main() {
	err := newRootCmd(os.Stderr).ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "webserver",
		Short:        "Serve static files over a minimal HTTP/1.0",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs, err := configSources(cmd.Flags())
			if err != nil {
				return err
			}

			builder := appbuilder.Recover(
				appbuilder.OTel(
					webserver.AppBuilderFunc[Config](func(ctx context.Context, cfg Config) (webserver.App, error) {
						return buildApp(ctx, cfg, logOut)
					}),
				),
			)
			return webserver.Run(cmd.Context(), builder, srcs...)
		},
	}

	flags := cmd.Flags()
	flags.IntP("port", "p", server.DefaultPort, "port to listen on")
	flags.StringP("root", "d", ".", "document root to serve files from")
	flags.StringP("config", "c", "", "yaml or json config file")
	flags.Bool("echo", false, "answer every request with the request itself")
	flags.BoolP("verbose", "v", false, "log every raw request")
	return cmd
}

// newLogHandler writes JSON records carrying the active trace and span
// ids. Credentials in logged request heads are masked.
func newLogHandler(w io.Writer, level slog.Level) slog.Handler {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	})
	return otelslog.NewHandler(maskslog.NewHandler(
		h,
		maskslog.Attr("raw", maskslog.HeaderValues("Authorization", "Proxy-Authorization", "Cookie")),
	))
}

func buildApp(ctx context.Context, cfg Config, logOut io.Writer) (webserver.App, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	rt := server.NewRuntime(
		server.ListenOnPort(uint(cfg.HTTP.Port)),
		server.DocumentRoot(cfg.HTTP.Root, docroot.IndexFile(cfg.HTTP.Index)),
		server.ReadTimeout(cfg.HTTP.ReadTimeout),
		server.WriteTimeout(cfg.HTTP.WriteTimeout),
		server.DrainTimeout(cfg.HTTP.DrainTimeout),
		server.MaxHeaderBytes(cfg.HTTP.MaxHeaderBytes),
		server.Echo(cfg.HTTP.Echo),
		server.LogHandler(newLogHandler(logOut, cfg.Logging.Level)),
	)

	var a webserver.App = rt
	a = app.Recover(a)
	a = app.WithSignalNotifications(a, os.Interrupt, syscall.SIGTERM)
	return a, nil
}
