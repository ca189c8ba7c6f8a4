package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *AppMetrics
	ctx := context.Background()

	m.CountLoginAttempt(ctx)
	m.CountLoginFailure(ctx)
	m.CountAccountLockout(ctx)
	m.CountTokenIssued(ctx, 2)
	m.ObserveDBQuery(ctx, "GetAccountByID", time.Millisecond, errors.New("boom"))
}

func TestObserveDBQueryRecordsDurationAndErrors(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	InitAppMetrics()
	m := Get()

	ctx := context.Background()
	m.ObserveDBQuery(ctx, "GetAccountByID", 5*time.Millisecond, nil)
	m.ObserveDBQuery(ctx, "CreateAccount", 7*time.Millisecond, errors.New("connection reset"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, inst := range sm.Metrics {
			switch inst.Name {
			case "db_query_duration_seconds":
				hist, ok := inst.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				var count uint64
				for _, dp := range hist.DataPoints {
					count += dp.Count
				}
				assert.Equal(t, uint64(2), count, "every query records a duration")
				found[inst.Name] = true
			case "db_query_errors_total":
				sum, ok := inst.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				assert.Equal(t, int64(1), total, "only the failed query counts as an error")
				found[inst.Name] = true
			}
		}
	}
	assert.True(t, found["db_query_duration_seconds"])
	assert.True(t, found["db_query_errors_total"])
}
