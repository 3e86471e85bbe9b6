package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/ifcvalidation/bff/internal/infrastructure/config"
	"go.uber.org/zap"
)

// shutdownGrace is added to the hard time limit so running engines can finish
const shutdownGrace = 30 * time.Second

// Server wraps asynq server functionality
type Server struct {
	server *asynq.Server
	logger *zap.Logger
	mu     sync.Mutex
}

// NewServer creates a worker server consuming the configured queue
func NewServer(redisOpt asynq.RedisConnOpt, cfg config.QueueConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := asynq.NewServer(redisOpt, ServerConfig(cfg, logger))
	return &Server{
		server: srv,
		logger: logger,
	}
}

// ServerConfig maps queue settings onto asynq. Tasks that exhausted
// MaxRetry are archived and kept for inspection until their retention ends.
func ServerConfig(cfg config.QueueConfig, logger *zap.Logger) asynq.Config {
	return asynq.Config{
		Concurrency:     cfg.Concurrency,
		Queues:          map[string]int{cfg.Name: 1},
		ShutdownTimeout: cfg.HardTimeLimit + shutdownGrace,
		Logger:          logger.Sugar(),
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			delay := time.Duration(1<<uint(min(n, 10))) * time.Second
			logger.Warn("Task retry scheduled",
				zap.String("type", task.Type()),
				zap.Int("attempt", n),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			return delay
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error("Task processing failed",
				zap.String("type", task.Type()),
				zap.Int("retried", retried),
				zap.Int("max_retry", maxRetry),
				zap.Error(err),
			)
		}),
	}
}

// Run starts the server and blocks until ctx is cancelled
func (s *Server) Run(ctx context.Context, handler asynq.Handler) error {
	s.mu.Lock()
	if err := s.server.Start(handler); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to start worker: %w", err)
	}
	s.mu.Unlock()

	s.logger.Info("Worker started")
	<-ctx.Done()
	s.Shutdown()
	return nil
}

// Shutdown waits for in-flight tasks up to the shutdown timeout
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Worker shutting down")
	s.server.Shutdown()
}
