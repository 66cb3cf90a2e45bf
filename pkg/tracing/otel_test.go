package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestInitialize_Disabled(t *testing.T) {
	p, err := Initialize(context.Background(), DefaultConfig("inbound-service"))
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestTraceParent_RoundTrip(t *testing.T) {
	_, err := Initialize(context.Background(), DefaultConfig("inbound-service"))
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	sdk := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = sdk.Shutdown(context.Background()) })

	assert.Empty(t, TraceParent(context.Background()))

	ctx, span := sdk.Tracer("test").Start(context.Background(), "phase")
	parent := TraceParent(ctx)
	span.End()
	require.NotEmpty(t, parent)
	assert.Contains(t, parent, span.SpanContext().TraceID().String())

	continued := trace.SpanContextFromContext(WithTraceParent(context.Background(), parent))
	assert.True(t, continued.IsRemote())
	assert.Equal(t, span.SpanContext().TraceID(), continued.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), continued.SpanID())

	ctx = context.Background()
	assert.Equal(t, ctx, WithTraceParent(ctx, ""))
}

func TestSpanAttributes(t *testing.T) {
	attrs := PhaseSpanAttributes("SHP-1", "set_packing", "plan_created")
	require.Len(t, attrs, 3)
	assert.Equal(t, "SHP-1", attrs[0].Value.AsString())
	assert.Equal(t, "inbound.phase", string(attrs[1].Key))

	remote := RemoteCallSpanAttributes("createInboundPlan", "POST", "/inbound/plans")
	assert.Equal(t, "remote.operation", string(remote[0].Key))
	assert.Equal(t, "POST", remote[1].Value.AsString())
}
