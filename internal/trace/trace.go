// Package trace provides support for tracing.
package trace

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type Config struct {
	Env      string
	Endpoint string
	Service  string

	SampleFraction float64
	// DiscardTraces is implied when Endpoint is empty.
	DiscardTraces bool
}

func NewProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error
	if cfg.DiscardTraces || cfg.Endpoint == "" {
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(io.Discard))
		if err != nil {
			return nil, fmt.Errorf("trace exporter: %w", err)
		}
	} else {
		exporter, err = otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
		))
		if err != nil {
			return nil, fmt.Errorf("trace exporter: %w", err)
		}
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleFraction)),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.Service),
			attribute.String("environment", cfg.Env),
		)),
	)

	return provider, nil
}

// Start builds the provider, registers it globally and returns the service
// tracer plus the function that flushes pending spans on shutdown.
func Start(ctx context.Context, cfg Config) (oteltrace.Tracer, func(context.Context) error, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	otel.SetTracerProvider(provider)

	return provider.Tracer(cfg.Service), provider.Shutdown, nil
}
