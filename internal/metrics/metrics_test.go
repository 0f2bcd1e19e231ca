package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"single", "signoz-ingestion-key=abc", map[string]string{"signoz-ingestion-key": "abc"}},
		{"multiple with spaces", " a = 1 , b=2", map[string]string{"a": "1", "b": "2"}},
		{"malformed pair dropped", "novalue,k=v", map[string]string{"k": "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseHeaders(tt.input))
		})
	}
}

func TestWithServiceName(t *testing.T) {
	m := NewDiscardMetrics("farmerhub-test")
	attrs := m.WithServiceName([]attribute.KeyValue{attribute.String("k", "v")})
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.String("service.name", "farmerhub-test"), attrs[1])
}

func TestRecordDBQueryExportsCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewAppMetrics(provider.Meter("test"), "farmerhub-test")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordDBQuery(ctx, "SELECT", "products", "SELECT 1", time.Now(), true)
	m.Inc(ctx, m.OrdersCreated)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			names[md.Name] = true
		}
	}
	assert.True(t, names["db.client.queries.count"])
	assert.True(t, names["db.client.queries.duration"])
	assert.True(t, names["orders_created_total"])
}
