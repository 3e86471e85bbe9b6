package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ValidationProcessor runs one validation request
type ValidationProcessor interface {
	ProcessValidationRequest(ctx context.Context, requestID int64, fileName string) error
}

// Handler dispatches queue tasks to the validation processor
type Handler struct {
	processor ValidationProcessor
	logger    *zap.Logger
}

// NewHandler creates a task handler
func NewHandler(processor ValidationProcessor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{processor: processor, logger: logger}
}

// ProcessTask processes a task based on its type
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	switch task.Type() {
	case TypeValidateFile:
		return h.processValidation(ctx, task)
	default:
		return fmt.Errorf("unknown task type %q: %w", task.Type(), asynq.SkipRetry)
	}
}

func (h *Handler) processValidation(ctx context.Context, task *asynq.Task) error {
	p, err := ParseValidationPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	taskID, _ := asynq.GetTaskID(ctx)
	log := h.logger.With(
		zap.String("task_id", taskID),
		zap.Int64("request_id", p.ID),
		zap.String("file_name", p.FileName),
	)

	start := time.Now()
	log.Info("Validation task started")
	if err := h.processor.ProcessValidationRequest(ctx, p.ID, p.FileName); err != nil {
		log.Error("Validation task failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return err
	}
	log.Info("Validation task finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Mux routes task types to the handler
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeValidateFile, h.ProcessTask)
	return mux
}
