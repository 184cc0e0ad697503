package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInstruments_RecordSession(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	inst, err := NewInstruments()
	require.NoError(t, err)
	require.NotNil(t, inst.Tracer())

	ctx := context.Background()
	inst.RecordSession(ctx, "success", 9, 800*time.Millisecond)
	inst.RecordSession(ctx, "TIMEOUT", 2, 10*time.Second)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, InstrumentationName, rm.ScopeMetrics[0].Scope.Name)

	names := map[string]bool{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = true
		if m.Name == "cubesnap.frame.total" {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			assert.Equal(t, int64(11), total)
		}
	}
	assert.True(t, names["cubesnap.session.total"])
	assert.True(t, names["cubesnap.session.duration"])
}

func TestInstruments_NoopByDefault(t *testing.T) {
	inst, err := NewInstruments()
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		inst.RecordSession(context.Background(), "success", 1, time.Second)
	})
}
