package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	appvalidation "github.com/ifcvalidation/bff/internal/application/validation"
	"github.com/ifcvalidation/bff/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ensure Client implements ValidationEnqueuer
var _ appvalidation.ValidationEnqueuer = (*Client)(nil)

// taskEnqueuer is the part of asynq.Client the Client needs
type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client wraps asynq client functionality
type Client struct {
	client taskEnqueuer
	cfg    config.QueueConfig
	logger *zap.Logger
	mu     sync.RWMutex
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithClientLogger sets the logger used for enqueue events
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// withEnqueuer replaces the asynq client; used by tests
func withEnqueuer(e taskEnqueuer) ClientOption {
	return func(c *Client) {
		c.client = e
	}
}

// NewClient creates a queue client for the given Redis connection
func NewClient(redisOpt asynq.RedisConnOpt, cfg config.QueueConfig, opts ...ClientOption) *Client {
	c := &Client{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = asynq.NewClient(redisOpt)
	}
	return c
}

// EnqueueValidation submits ifc_file_validation_task for a request.
// Failed tasks are not retried; the user re-runs them from the dashboard.
func (c *Client) EnqueueValidation(ctx context.Context, requestID int64, fileName string) error {
	task, err := NewValidationTask(ValidationPayload{ID: requestID, FileName: fileName})
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	info, err := c.client.EnqueueContext(ctx, task, c.options()...)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("Validation task enqueued",
		zap.Int64("request_id", requestID),
		zap.String("file_name", fileName),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
	)
	return nil
}

func (c *Client) options() []asynq.Option {
	opts := []asynq.Option{
		asynq.Queue(c.cfg.Name),
		asynq.MaxRetry(c.cfg.MaxRetry),
	}
	if c.cfg.HardTimeLimit > 0 {
		opts = append(opts, asynq.Timeout(c.cfg.HardTimeLimit))
	}
	if c.cfg.Retention > 0 {
		opts = append(opts, asynq.Retention(c.cfg.Retention))
	}
	return opts
}

// Close closes the Redis client connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close queue client: %w", err)
	}
	return nil
}
