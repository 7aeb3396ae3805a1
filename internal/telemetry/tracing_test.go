package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestInitTracerProviderPropagatesTraceContext(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracerProvider(ctx, Config{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	spanCtx, span := otel.Tracer("test").Start(ctx, "publish")
	defer span.End()
	require.True(t, span.SpanContext().IsValid())

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(spanCtx, carrier)
	require.Contains(t, carrier.Get("traceparent"), span.SpanContext().TraceID().String())
}
