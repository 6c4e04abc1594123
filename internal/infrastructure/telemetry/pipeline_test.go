package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

func TestStart_ExportOff(t *testing.T) {
	ctx := context.Background()

	p, err := telemetry.Start(ctx, telemetry.Config{
		ServiceName:       "storefront-test",
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.TracingEnabled())
	assert.False(t, p.MetricsEnabled())
	assert.False(t, p.LogsEnabled())

	// The commerce client relies on the propagator even without export
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")

	assert.NotNil(t, p.Meter("checkout"))
	assert.False(t, p.LogCore(zapcore.ErrorLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, p.ForceFlush(ctx))
	assert.NoError(t, p.Shutdown(ctx))
}

func TestStart_NilLogger(t *testing.T) {
	p, err := telemetry.Start(context.Background(), telemetry.Config{}, nil)
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestStart_AllSignals(t *testing.T) {
	// The gRPC exporters connect lazily, so no collector is needed
	ctx := context.Background()

	tracerProvider := otel.GetTracerProvider()
	meterProvider := otel.GetMeterProvider()
	loggerProvider := global.GetLoggerProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tracerProvider)
		otel.SetMeterProvider(meterProvider)
		global.SetLoggerProvider(loggerProvider)
	})

	p, err := telemetry.Start(ctx, telemetry.Config{
		ServiceName:       "storefront-test",
		Environment:       "test",
		CollectorEndpoint: "localhost:14317",
		Insecure:          true,
		TracesEnabled:     true,
		SamplingRatio:     0.5,
		MetricsEnabled:    true,
		ExportInterval:    time.Hour,
		LogsEnabled:       true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, p.TracingEnabled())
	assert.True(t, p.MetricsEnabled())
	assert.True(t, p.LogsEnabled())

	_, err = telemetry.NewCheckoutMetrics(p.Meter("checkout"), nil)
	assert.NoError(t, err)

	core := p.LogCore(zapcore.WarnLevel)
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
	assert.True(t, p.LogCore(zapcore.DebugLevel).Enabled(zapcore.DebugLevel))

	shutdownCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(shutdownCtx)
}

func TestStart_SelectedSignals(t *testing.T) {
	meterProvider := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(meterProvider) })

	p, err := telemetry.Start(context.Background(), telemetry.Config{
		ServiceName:       "storefront-test",
		CollectorEndpoint: "localhost:14317",
		Insecure:          true,
		MetricsEnabled:    true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.TracingEnabled())
	assert.True(t, p.MetricsEnabled())
	assert.False(t, p.LogsEnabled())
	assert.False(t, p.LogCore(zapcore.ErrorLevel).Enabled(zapcore.ErrorLevel))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(shutdownCtx)
}
