// Package bootstrap builds the process-wide dependencies shared by the API
// server and the validation worker: logging, telemetry, database and file
// storage.
package bootstrap

import (
	"context"
	"fmt"

	appvalidation "github.com/ifcvalidation/bff/internal/application/validation"
	"github.com/ifcvalidation/bff/internal/infrastructure/config"
	"github.com/ifcvalidation/bff/internal/infrastructure/logger"
	"github.com/ifcvalidation/bff/internal/infrastructure/persistence"
	"github.com/ifcvalidation/bff/internal/infrastructure/storage"
	"github.com/ifcvalidation/bff/internal/infrastructure/telemetry"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Runtime holds the initialized shared dependencies of a process
type Runtime struct {
	Config  *config.Config
	Logger  *zap.Logger
	Tracer  *telemetry.TracerProvider
	Meter   *telemetry.MeterProvider
	Logs    *telemetry.LoggerProvider
	DB      *persistence.Database
	Storage appvalidation.FileStorage

	dbMetrics *telemetry.DBMetrics
	closers   []func(context.Context) error
}

// New initializes logging, telemetry, the database and file storage for the
// named process. On error everything opened so far is released.
func New(ctx context.Context, cfg *config.Config, process string) (_ *Runtime, err error) {
	rt := &Runtime{Config: cfg}
	defer func() {
		if err != nil {
			_ = rt.Close(context.Background())
		}
	}()

	service := telemetry.ServiceInfo{
		Name:        cfg.Telemetry.ServiceName,
		Version:     cfg.App.Version,
		Component:   process,
		Environment: cfg.App.Env,
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Folder:     cfg.Log.Folder,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	baseLog, err := logger.New(logCfg, logger.WithName(process))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	rt.Logger = baseLog

	rt.Logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Service:           service,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, rt.Logs.Shutdown)

	if rt.Logs.IsEnabled() {
		rt.Logger, err = logger.New(logCfg, logger.WithName(process), logger.WithCore(telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: rt.Logs,
			Level:          logger.ParseLevel(cfg.Log.Level),
		})))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	rt.Tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		Service:           service,
		Insecure:          cfg.Telemetry.Insecure,
	}, rt.Logger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, rt.Tracer.Shutdown)

	rt.Meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		Service:           service,
		Insecure:          cfg.Telemetry.Insecure,
	}, rt.Logger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, rt.Meter.Shutdown)

	if err := rt.openDatabase(ctx); err != nil {
		return nil, err
	}

	rt.Storage, err = storage.New(ctx, &cfg.Storage, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	return rt, nil
}

func (rt *Runtime) openDatabase(ctx context.Context) error {
	cfg := rt.Config
	gormLog := logger.NewGormLogger(rt.Logger, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)

	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return err
	}
	rt.DB = db
	rt.closers = append(rt.closers, func(context.Context) error { return db.Close() })

	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL && !cfg.App.IsProduction(),
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        telemetry.DBSystemFor(cfg.Database.Driver),
	}, rt.Logger)
	if err := tracing.RegisterOtelGorm(db.DB); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	metricsCfg := telemetry.DefaultDBMetricsConfig()
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		metricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	}
	rt.dbMetrics, err = telemetry.RegisterDBMetrics(ctx, db.DB, rt.Meter, metricsCfg, rt.Logger)
	if err != nil {
		return fmt.Errorf("failed to register database metrics: %w", err)
	}

	rt.Logger.Info("Database connected", zap.String("driver", db.Driver))
	return nil
}

// Close releases everything in reverse order of creation
func (rt *Runtime) Close(ctx context.Context) error {
	if rt.dbMetrics != nil {
		rt.dbMetrics.Stop()
	}

	var err error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, rt.closers[i](ctx))
	}
	rt.closers = nil

	if rt.Logger != nil {
		_ = logger.Sync(rt.Logger)
	}
	return err
}
