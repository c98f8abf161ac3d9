// Package otel wires optional OpenTelemetry log export into the
// service. Dispatcher metrics go through the global meter regardless;
// this package only decides where log records are shipped.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ErrNoExporters is returned when export is enabled but neither a log
// writer nor an OTLP endpoint is configured.
var ErrNoExporters = errors.New("telemetry enabled with no log writer or endpoint")

// Config selects the export targets. LogWriter receives pretty-printed
// records (normally the session log file); Endpoint, when set, adds an
// OTLP/HTTP exporter on top.
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	LogWriter    io.Writer
	Endpoint     string
	Insecure     bool
}

// Provider owns the configured log pipeline. The zero-value-like
// disabled provider is safe to flush and shut down.
type Provider struct {
	enabled  bool
	pipeline *sdklog.LoggerProvider
}

// New builds a provider from cfg. A disabled config yields an inert
// provider rather than an error.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	ctx := context.Background()

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("building telemetry resource: %w", err)
	}

	processors, err := buildProcessors(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(processors) == 0 {
		return nil, ErrNoExporters
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, proc := range processors {
		opts = append(opts, sdklog.WithProcessor(proc))
	}

	return &Provider{
		enabled:  true,
		pipeline: sdklog.NewLoggerProvider(opts...),
	}, nil
}

func buildProcessors(ctx context.Context, cfg Config) ([]sdklog.Processor, error) {
	var processors []sdklog.Processor

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(
			stdoutlog.WithWriter(cfg.LogWriter),
			stdoutlog.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("building file log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(exp,
			sdklog.WithExportTimeout(cfg.BatchTimeout)))
	}

	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("building OTLP log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(exp,
			sdklog.WithExportTimeout(cfg.BatchTimeout)))
	}

	return processors, nil
}

// LoggerProvider exposes the underlying provider for slog bridging.
// Nil when export is disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.pipeline
}

// Enabled reports whether log export is active.
func (p *Provider) Enabled() bool {
	return p.enabled
}

// Flush drains pending records.
func (p *Provider) Flush(ctx context.Context) error {
	if p.pipeline == nil {
		return nil
	}
	if err := p.pipeline.ForceFlush(ctx); err != nil {
		return fmt.Errorf("flushing telemetry logs: %w", err)
	}
	return nil
}

// Shutdown stops the pipeline. Call on service exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.pipeline == nil {
		return nil
	}
	if err := p.pipeline.Shutdown(ctx); err != nil {
		return fmt.Errorf("stopping telemetry logs: %w", err)
	}
	return nil
}
