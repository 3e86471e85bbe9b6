package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestDBMetrics(t *testing.T, cfg DBMetricsConfig) (*DBMetrics, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewDBMetrics(provider.Meter("test"), cfg, zap.NewNop())
	require.NoError(t, err)
	return m, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics_AppliesDefaults(t *testing.T) {
	m, _ := newTestDBMetrics(t, DBMetricsConfig{})

	assert.Equal(t, DefaultDBMetricsConfig().SlowQueryThreshold, m.config.SlowQueryThreshold)
	assert.Equal(t, DefaultDBMetricsConfig().PoolStatsInterval, m.config.PoolStatsInterval)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	ctx := context.Background()
	m, reader := newTestDBMetrics(t, DBMetricsConfig{SlowQueryThreshold: 100 * time.Millisecond})

	m.RecordQuery(ctx, "select", "ifc_validation_request", 10*time.Millisecond)
	m.RecordQuery(ctx, "SELECT", "ifc_validation_request", 300*time.Millisecond)
	m.RecordQuery(ctx, "", "", time.Second)

	got := collectMetrics(t, reader)

	total := got["db_query_total"].Data.(metricdata.Sum[int64])
	byOp := map[string]int64{}
	for _, dp := range total.DataPoints {
		op, _ := dp.Attributes.Value(AttrDBOperation)
		byOp[op.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"SELECT": 2, "UNKNOWN": 1}, byOp)

	slow := got["db_slow_query_total"].Data.(metricdata.Sum[int64])
	byTable := map[string]int64{}
	for _, dp := range slow.DataPoints {
		table, _ := dp.Attributes.Value(AttrDBTable)
		byTable[table.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"ifc_validation_request": 1, "unknown": 1}, byTable)

	assert.Contains(t, got, "db_query_duration_seconds")
}

func TestDBMetricsPlugin_RecordsGormQueries(t *testing.T) {
	db := setupTestDB(t)
	m, reader := newTestDBMetrics(t, DefaultDBMetricsConfig())
	require.NoError(t, db.Use(NewDBMetricsPlugin(m)))

	require.NoError(t, db.Create(&tracedUpload{FileName: "house.ifc"}).Error)
	var found []tracedUpload
	require.NoError(t, db.Find(&found).Error)
	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM traced_uploads").Scan(&count).Error)

	total := collectMetrics(t, reader)["db_query_total"].Data.(metricdata.Sum[int64])
	byOp := map[string]int64{}
	for _, dp := range total.DataPoints {
		op, _ := dp.Attributes.Value(AttrDBOperation)
		byOp[op.AsString()] = dp.Value
	}
	assert.Equal(t, int64(1), byOp["INSERT"])
	assert.Equal(t, int64(2), byOp["SELECT"])
	assert.Equal(t, int64(1), count)
}

func TestDBMetrics_PoolStats(t *testing.T) {
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	m, reader := newTestDBMetrics(t, DBMetricsConfig{PoolStatsInterval: time.Hour})

	m.StartPoolStatsCollection(context.Background(), sqlDB)
	m.Stop()
	m.Stop()

	got := collectMetrics(t, reader)
	pool := got["db_pool_connections"].Data.(metricdata.Gauge[int64])
	states := map[string]bool{}
	for _, dp := range pool.DataPoints {
		state, _ := dp.Attributes.Value(AttrDBState)
		states[state.AsString()] = true
	}
	assert.Equal(t, map[string]bool{"idle": true, "in_use": true, "open": true}, states)
}

func TestDBMetrics_PoolStatsWithoutHandle(t *testing.T) {
	m, _ := newTestDBMetrics(t, DefaultDBMetricsConfig())

	m.StartPoolStatsCollection(context.Background(), nil)
	m.Stop()
}

func TestDetectOperationType(t *testing.T) {
	tests := map[string]string{
		"SELECT * FROM users":        "SELECT",
		"  insert into users":        "INSERT",
		"UPDATE users SET is_active": "UPDATE",
		"delete from users":          "DELETE",
		"PRAGMA foreign_keys":        "OTHER",
		"":                           "OTHER",
	}
	for sql, want := range tests {
		assert.Equal(t, want, detectOperationType(sql), sql)
	}
}

func TestRegisterDBMetrics_Disabled(t *testing.T) {
	db := setupTestDB(t)

	m, err := RegisterDBMetrics(context.Background(), db, nil, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, m)
}
