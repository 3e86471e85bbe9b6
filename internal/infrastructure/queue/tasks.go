// Package queue carries validation jobs between the web process and the
// worker on top of asynq (Redis).
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/ifcvalidation/bff/internal/infrastructure/config"
)

// TypeValidateFile is the task name the worker subscribes to
const TypeValidateFile = "ifc_file_validation_task"

// ValidationPayload identifies the request a worker should process
type ValidationPayload struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
}

// Validate checks the payload fields
func (p ValidationPayload) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("invalid request id %d", p.ID)
	}
	if strings.TrimSpace(p.FileName) == "" {
		return errors.New("file name is required")
	}
	return nil
}

// NewValidationTask builds the task for a request
func NewValidationTask(p ValidationPayload, opts ...asynq.Option) (*asynq.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return asynq.NewTask(TypeValidateFile, b, opts...), nil
}

// ParseValidationPayload decodes and validates a task payload
func ParseValidationPayload(task *asynq.Task) (ValidationPayload, error) {
	var p ValidationPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to decode payload: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// RedisConnOpt turns the shared Redis settings into asynq connection options.
// A broker URL, when present, takes precedence over host and port.
func RedisConnOpt(cfg config.RedisConfig) (asynq.RedisConnOpt, error) {
	if cfg.URL != "" {
		opt, err := asynq.ParseRedisURI(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}, nil
}
