package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ifcvalidation/bff/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{Name: "bff-test", Env: config.EnvDevelopment, Version: "test"},
		Database: config.DatabaseConfig{
			Driver:          "sqlite",
			Path:            filepath.Join(dir, "db.sqlite3"),
			ConnMaxLifetime: 60,
			ConnMaxIdleTime: 30,
		},
		Storage: config.StorageConfig{Backend: "filesystem", MediaRoot: filepath.Join(dir, "media")},
		Log:     config.LogConfig{Level: "error", Format: "console", Output: "stderr"},
		Telemetry: config.TelemetryConfig{
			ServiceName:       "bff-test",
			DBSlowQueryThresh: 200 * time.Millisecond,
		},
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	rt, err := New(ctx, testConfig(t), "test")
	require.NoError(t, err)

	assert.NotNil(t, rt.Logger)
	assert.NotNil(t, rt.Storage)
	assert.False(t, rt.Tracer.IsEnabled())
	assert.False(t, rt.Meter.IsEnabled())
	assert.False(t, rt.Logs.IsEnabled())
	require.NoError(t, rt.DB.Ping(ctx))

	require.NoError(t, rt.Close(ctx))
	assert.Error(t, rt.DB.Ping(ctx), "database is closed")
	assert.NoError(t, rt.Close(ctx), "second close is a no-op")
}

func TestNew_StorageFailureReleasesDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "ftp"

	rt, err := New(context.Background(), cfg, "test")
	require.Error(t, err)
	assert.Nil(t, rt)
	assert.Contains(t, err.Error(), "file storage")
}
