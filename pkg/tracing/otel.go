package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config holds tracing configuration
type Config struct {
	ServiceName    string  `yaml:"-"`
	ServiceVersion string  `yaml:"-"`
	Environment    string  `yaml:"-"`
	OTLPEndpoint   string  `yaml:"otlpEndpoint"`
	SampleRate     float64 `yaml:"sampleRate"`
	Enabled        bool    `yaml:"enabled"`
}

// DefaultConfig keeps exporting off until an OTLP collector is configured
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
	}
}

const traceParentHeader = "traceparent"

// Provider owns the SDK tracer provider while spans are exported
type Provider struct {
	sdk *sdktrace.TracerProvider
}

// Initialize installs the W3C propagator and, when enabled, a global tracer
// provider that batches spans to the OTLP endpoint. Otherwise the global
// no-op provider stays in place.
func Initialize(ctx context.Context, config *Config) (*Provider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !config.Enabled {
		return &Provider{}, nil
	}

	exporter, err := newExporter(ctx, config.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.ServiceNamespaceKey.String("wms"),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to describe trace resource: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))),
	)
	otel.SetTracerProvider(sdk)
	return &Provider{sdk: sdk}, nil
}

func newExporter(ctx context.Context, endpoint string) (*otlptrace.Exporter, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial OTLP endpoint %s: %w", endpoint, err)
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(otlptracegrpc.WithGRPCConn(conn)))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return exporter, nil
}

// Shutdown flushes pending spans. It is a no-op when exporting is off.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}

// TraceParent renders the span context in ctx as a W3C traceparent value.
// It is empty when ctx carries no valid span context.
func TraceParent(ctx context.Context) string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.Get(traceParentHeader)
}

// WithTraceParent continues the trace a CloudEvent was raised in
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	if traceParent == "" {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier{traceParentHeader: traceParent})
}

var (
	shipmentIDKey = attribute.Key("inbound.shipment_id")
	phaseKey      = attribute.Key("inbound.phase")
	markerKey     = attribute.Key("inbound.marker")
	remoteOpKey   = attribute.Key("remote.operation")
)

// PhaseSpanAttributes tags a submission phase span
func PhaseSpanAttributes(shipmentID, phase, marker string) []attribute.KeyValue {
	return []attribute.KeyValue{
		shipmentIDKey.String(shipmentID),
		phaseKey.String(phase),
		markerKey.String(marker),
	}
}

// RemoteCallSpanAttributes tags a fulfillment network call span
func RemoteCallSpanAttributes(operation, method, route string) []attribute.KeyValue {
	return []attribute.KeyValue{
		remoteOpKey.String(operation),
		semconv.HTTPMethodKey.String(method),
		semconv.HTTPRouteKey.String(route),
	}
}

// MessagingSpanAttributes tags a broker publish or consume span
func MessagingSpanAttributes(system, destination, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.MessagingSystemKey.String(system),
		semconv.MessagingDestinationNameKey.String(destination),
		semconv.MessagingOperationKey.String(operation),
	}
}
