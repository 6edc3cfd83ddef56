package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

type ProviderConfig struct {
	ServiceName string
	Version     string
	Enabled     bool
	OTLP        exporters.OTLPConfig
}

// Provider owns the SDK tracer provider so it can be flushed on shutdown
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewProvider installs a global tracer provider. With OTLP disabled spans are
// still created (trace ids show up in error responses) but dropped by a noop exporter.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	var exporter sdktrace.SpanExporter = &exporters.ConsoleExporter{}
	if cfg.Enabled {
		otlp, err := exporters.NewOTLPExporter(ctx, cfg.OTLP)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporter = otlp
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.Version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	SetTracer(tp.Tracer(cfg.ServiceName))

	return &Provider{tp: tp}, nil
}

func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}
