package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func enabledConfig(sampleRate float64) Config {
	// Non-routable endpoint; the batched exporter never connects during the
	// test, initialization succeeds regardless.
	return Config{
		ServiceName:    "geniebazaar",
		ServiceVersion: "0.1.0",
		Environment:    "test",
		OTLPEndpoint:   "127.0.0.1:0",
		SampleRate:     sampleRate,
		Enabled:        true,
	}
}

func TestInitTracer_Disabled(t *testing.T) {
	cfg := DefaultConfig("geniebazaar")

	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_Enabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), enabledConfig(1.0))
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok, "global provider should be the SDK provider")

	// Shutdown may report the unreachable endpoint; that is fine here.
	_ = shutdown(context.Background())
}

func TestInitTracer_SamplerChoices(t *testing.T) {
	for _, rate := range []float64{0.0, 0.5} {
		shutdown, err := InitTracer(context.Background(), enabledConfig(rate))
		require.NoError(t, err, "sample rate %f", rate)
		_ = shutdown(context.Background())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("geniebazaar")

	assert.Equal(t, "geniebazaar", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.Equal(t, "localhost:4318", cfg.OTLPEndpoint)
}

func TestTracer_StartsSpans(t *testing.T) {
	tracer := Tracer("catalog")
	require.NotNil(t, tracer)

	// Without an SDK provider installed the span is a no-op; starting and
	// ending it must still be safe.
	_, span := tracer.Start(context.Background(), "list products")
	span.End()
}
