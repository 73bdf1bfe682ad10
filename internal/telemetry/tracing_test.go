package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"inventory-api/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func testTracing() config.TracingConfig {
	return config.TracingConfig{
		ServiceName:    "inventory-api",
		ServiceVersion: "test",
		Environment:    "test",
		SampleRatio:    1,
	}
}

func TestNewTracerProvider_RecordsServiceResource(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := NewTracerProvider(context.Background(), testTracing(), sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { tp.Shutdown(context.Background()) })

	handler := otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), "inventory-api", otelhttp.WithTracerProvider(tp))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Resource().Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "inventory-api", attrs[semconv.ServiceNameKey].AsString())
	assert.Equal(t, "test", attrs[semconv.DeploymentEnvironmentKey].AsString())
}

func TestNewTracerProvider_SampleRatio(t *testing.T) {
	cfg := testTracing()
	cfg.SampleRatio = 0

	recorder := tracetest.NewSpanRecorder()
	tp, err := NewTracerProvider(context.Background(), cfg, sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "dropped")
	span.End()

	assert.False(t, span.SpanContext().IsSampled())
	assert.Empty(t, recorder.Ended())
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased{0.5}")
}

func TestSetup_InstallsGlobals(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	shutdown, err := Setup(context.Background(), testTracing(), zap.NewNop())
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")

	// An incoming traceparent becomes the parent of the server span.
	carrier := propagation.HeaderCarrier{}
	carrier.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), carrier)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", trace.SpanContextFromContext(ctx).TraceID().String())

	require.NoError(t, shutdown(context.Background()))
}
