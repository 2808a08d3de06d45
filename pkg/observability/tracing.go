// Package observability provides OpenTelemetry tracing for DOMS pipelines
package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ajitpratap0/doms/pkg/config"
)

// Tracing owns a tracer provider and the tracer spans are started from.
type Tracing struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	out      io.Closer
}

// NewTracing builds a provider that exports spans as JSON lines to
// cfg.OutputPath, or to stdout when no path is set. A disabled config yields
// a no-op tracer.
func NewTracing(cfg config.TracingConfig, version string) (*Tracing, error) {
	if !cfg.Enabled {
		return &Tracing{tracer: noop.NewTracerProvider().Tracer(cfg.ServiceName)}, nil
	}

	var (
		w   io.Writer = os.Stdout
		out io.Closer
	)
	if cfg.OutputPath != "" {
		f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace output: %w", err)
		}
		w, out = f, f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if out != nil {
			_ = out.Close()
		}
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	t, err := NewTracingWithExporter(cfg, version, exporter)
	if err != nil {
		if out != nil {
			_ = out.Close()
		}
		return nil, err
	}
	t.out = out
	return t, nil
}

// NewTracingWithExporter builds a provider that batches spans to exporter.
func NewTracingWithExporter(cfg config.TracingConfig, version string, exporter sdktrace.SpanExporter) (*Tracing, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
		sdktrace.WithBatcher(exporter),
	)
	return &Tracing{provider: provider, tracer: provider.Tracer(cfg.ServiceName)}, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Tracer returns the tracer spans are started from.
func (t *Tracing) Tracer() trace.Tracer {
	return t.tracer
}

// Shutdown flushes pending spans and closes the output.
func (t *Tracing) Shutdown(ctx context.Context) error {
	var err error
	if t.provider != nil {
		if serr := t.provider.Shutdown(ctx); serr != nil {
			err = fmt.Errorf("failed to shutdown tracer: %w", serr)
		}
	}
	if t.out != nil {
		if cerr := t.out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close trace output: %w", cerr)
		}
	}
	return err
}

// Trace runs fn inside a span named operation. The span records fn's error
// and carries attrs.
func (t *Tracing) Trace(ctx context.Context, operation string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := t.tracer.Start(ctx, operation, trace.WithAttributes(attrs...))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// Annotate adds attributes to the span active in ctx.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
