// Package tracing wires OpenTelemetry spans around the parse pipeline.
package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/experiment-designer"

// Span attribute keys
var (
	AttrIntent     = attribute.Key("expdesign.intent")
	AttrConfidence = attribute.Key("expdesign.confidence")
	AttrStrategy   = attribute.Key("expdesign.strategy")
	AttrComplexity = attribute.Key("expdesign.complexity")
	AttrInputRunes = attribute.Key("expdesign.input.runes")
	AttrBatchSize  = attribute.Key("expdesign.batch.size")
	AttrTemplateID = attribute.Key("expdesign.template.id")
	AttrRequestID  = attribute.Key("expdesign.request.id")
)

// Config selects the exporter
type Config struct {
	Enabled     bool
	ServiceName string
	Version     string
	Pretty      bool
	Writer      io.Writer // stdout when nil
}

// Provider owns the SDK tracer provider. A zero Provider is a no-op.
type Provider struct {
	provider *sdktrace.TracerProvider
}

// Setup installs a stdout-exporting tracer provider as the global provider.
// When tracing is disabled the global no-op provider is left in place.
func Setup(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	var opts []stdouttrace.Option
	if cfg.Writer != nil {
		opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
	}
	if cfg.Pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	return NewProvider(cfg.ServiceName, cfg.Version, sdktrace.WithBatcher(exporter)), nil
}

// NewProvider builds a provider from raw SDK options and installs it globally
func NewProvider(serviceName, version string, opts ...sdktrace.TracerProviderOption) *Provider {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)
	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}, opts...)

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	return &Provider{provider: provider}
}

// Shutdown flushes pending spans
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// Tracer returns the service tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a new span with the given name
func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, spanName, opts...)
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	trace.SpanFromContext(ctx).RecordError(err)
}
