package telemetry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/renovo-atelier/atelier/config"
	"github.com/renovo-atelier/atelier/telemetry"
)

func TestManagerRecordsSpansAndLatency(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()

	manager := telemetry.NewManager(ctx, &config.ConfigurationDefault{OpenTelemetryTraceRatio: 1},
		telemetry.WithServiceName("atelier-test"),
		telemetry.WithServiceVersion("v0.0.1"),
		telemetry.WithTraceExporter(exporter),
		telemetry.WithTraceSampler(sdktrace.AlwaysSample()),
		telemetry.WithMetricsReader(reader),
	)
	require.False(t, manager.Disabled())
	require.NoError(t, manager.Init(ctx))

	tracer := telemetry.NewTracer("atelier/telemetry_test")
	spanCtx, span := tracer.Start(ctx, "render")
	tracer.End(spanCtx, span, errors.New("template missing"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.True(t, hasMetric(rm, "atelier/telemetry_test/latency"))

	require.NoError(t, manager.Shutdown(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "render", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "atelier-test", serviceName(spans[0]))
}

func TestDisabledManagerIsNoop(t *testing.T) {
	ctx := context.Background()
	manager := telemetry.NewManager(ctx, &config.ConfigurationDefault{OpenTelemetryDisable: true})

	assert.True(t, manager.Disabled())
	require.NoError(t, manager.Init(ctx))
	require.NoError(t, manager.Shutdown(ctx))
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{context.Canceled, "canceled"},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), "deadline exceeded"},
		{errors.New("boom"), "err"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, telemetry.ErrorCode(tt.err))
	}
}

func hasMetric(rm metricdata.ResourceMetrics, name string) bool {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

func serviceName(span tracetest.SpanStub) string {
	for _, kv := range span.Resource.Attributes() {
		if kv.Key == "service.name" {
			return kv.Value.AsString()
		}
	}
	return ""
}
