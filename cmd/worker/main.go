// Command worker consumes validation tasks and runs the validation engine.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ifcvalidation/bff/internal/application/processing"
	"github.com/ifcvalidation/bff/internal/infrastructure/bootstrap"
	"github.com/ifcvalidation/bff/internal/infrastructure/config"
	"github.com/ifcvalidation/bff/internal/infrastructure/engine"
	"github.com/ifcvalidation/bff/internal/infrastructure/persistence"
	"github.com/ifcvalidation/bff/internal/infrastructure/queue"
	"github.com/ifcvalidation/bff/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg, "worker")
	if err != nil {
		panic("Failed to initialize: " + err.Error())
	}
	log := rt.Logger

	log.Info("Starting validation worker",
		zap.String("queue", cfg.Queue.Name),
		zap.Int("concurrency", cfg.Queue.Concurrency),
		zap.Duration("soft_time_limit", cfg.Queue.SoftTimeLimit),
		zap.Duration("hard_time_limit", cfg.Queue.HardTimeLimit),
		zap.String("engine", cfg.Engine.Command),
	)

	runErr := run(ctx, cfg, rt)
	if runErr != nil {
		log.Error("Worker stopped with error", zap.Error(runErr))
	} else {
		log.Info("Worker exited gracefully")
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := rt.Close(closeCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
	}
	if runErr != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, rt *bootstrap.Runtime) error {
	log := rt.Logger
	requestRepo := persistence.NewGormValidationRequestRepository(rt.DB.DB)

	runner, err := engine.NewRunner(cfg.Engine, cfg.Queue, log)
	if err != nil {
		return err
	}

	metrics, err := telemetry.NewValidationMetrics(telemetry.ValidationMetricsConfig{
		Meter:  rt.Meter.Meter("ifc.validation"),
		Logger: log,
	})
	if err != nil {
		return err
	}

	processor := processing.NewProcessor(requestRepo, rt.Storage, runner, metrics, log)

	redisOpt, err := queue.RedisConnOpt(cfg.Redis)
	if err != nil {
		return err
	}
	server := queue.NewServer(redisOpt, cfg.Queue, log)
	handler := queue.NewHandler(processor, log)

	return server.Run(ctx, handler.Mux())
}
