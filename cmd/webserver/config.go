// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/z5labs/webserver/config"
	"github.com/z5labs/webserver/config/configtmpl"
	"github.com/z5labs/webserver/pkg/otelconfig"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
)

//go:embed default_config.yaml
var defaultConfig []byte

// Config is everything the server process can be configured with.
type Config struct {
	HTTP struct {
		Port           int           `config:"port"`
		Root           string        `config:"root"`
		Index          string        `config:"index"`
		ReadTimeout    time.Duration `config:"readTimeout"`
		WriteTimeout   time.Duration `config:"writeTimeout"`
		DrainTimeout   time.Duration `config:"drainTimeout"`
		MaxHeaderBytes int           `config:"maxHeaderBytes"`
		Echo           bool          `config:"echo"`
	} `config:"http"`

	Logging struct {
		Level slog.Level `config:"level"`
	} `config:"logging"`

	OTel struct {
		ServiceName string `config:"serviceName"`
		Exporter    string `config:"exporter"`
		OTLP        struct {
			Target string `config:"target"`
		} `config:"otlp"`
	} `config:"otel"`
}

// InvalidConfigError reports a config value the server can not run with.
type InvalidConfigError struct {
	Key    string
	Reason string
}

// Error implements the [builtin.error] interface.
func (e InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config value for %s: %s", e.Key, e.Reason)
}

// Validate checks the values which can not be defaulted.
func (cfg Config) Validate() error {
	if cfg.HTTP.Port < 1 || cfg.HTTP.Port > 65535 {
		return InvalidConfigError{
			Key:    "http.port",
			Reason: fmt.Sprintf("%d is outside of 1-65535", cfg.HTTP.Port),
		}
	}
	if cfg.HTTP.Root == "" {
		return InvalidConfigError{Key: "http.root", Reason: "must not be empty"}
	}

	timeouts := []struct {
		key string
		d   time.Duration
	}{
		{key: "http.readTimeout", d: cfg.HTTP.ReadTimeout},
		{key: "http.writeTimeout", d: cfg.HTTP.WriteTimeout},
		{key: "http.drainTimeout", d: cfg.HTTP.DrainTimeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			return InvalidConfigError{Key: t.key, Reason: "must be positive"}
		}
	}
	return nil
}

// InitializeOTel implements the [appbuilder.OTelInitializer] interface.
func (cfg Config) InitializeOTel(ctx context.Context) error {
	initializer, err := otelconfig.ForExporter(
		cfg.OTel.Exporter,
		cfg.OTel.ServiceName,
		cfg.OTel.OTLP.Target,
	)
	if err != nil {
		return err
	}

	tp, err := initializer.Init()
	if err != nil {
		return err
	}
	if tp == otel.GetTracerProvider() {
		return nil
	}
	otel.SetTracerProvider(tp)
	return nil
}

// flagKeys maps command line flags onto the config keys they override.
var flagKeys = map[string]string{
	"port": "http.port",
	"root": "http.root",
	"echo": "http.echo",
}

// configSources orders sources from lowest to highest precedence:
// the embedded defaults, then the --config file, then any flag the
// user explicitly set.
func configSources(flags *pflag.FlagSet) ([]config.Source, error) {
	srcs := []config.Source{
		config.FromTemplate(bytes.NewReader(defaultConfig), config.YAML, configtmpl.Funcs()),
	}

	configFile, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if configFile != "" {
		abs, err := filepath.Abs(configFile)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, config.FromFile(os.DirFS(filepath.Dir(abs)), filepath.Base(abs)))
	}

	srcs = append(srcs, config.FromFlags(flags, flagKeys))

	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, err
	}
	if verbose {
		srcs = append(srcs, config.Map{
			"logging": map[string]any{"level": slog.LevelDebug.String()},
		})
	}
	return srcs, nil
}
