// Package processing is the worker side of ifc_file_validation_task: it hands
// a stored file to the validation engine and records the outcome on the request.
package processing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appvalidation "github.com/ifcvalidation/bff/internal/application/validation"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/ifcvalidation/bff/internal/domain/validation"
	"go.uber.org/zap"
)

// EngineResult describes one finished engine run
type EngineResult struct {
	ExitCode int
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// Succeeded reports whether the engine exited cleanly in time
func (r *EngineResult) Succeeded() bool {
	return r != nil && r.ExitCode == 0 && !r.TimedOut
}

// EngineRunner runs the external validation engine on a local file
type EngineRunner interface {
	// Run blocks until the engine exits or its time limit is reached.
	// An error means the engine could not be started at all.
	Run(ctx context.Context, requestID int64, filePath string) (*EngineResult, error)
}

// OutcomeRecorder receives counters about processed requests
type OutcomeRecorder interface {
	RecordProcessed(ctx context.Context, status validation.RequestStatus, duration time.Duration)
}

type noopOutcomeRecorder struct{}

func (noopOutcomeRecorder) RecordProcessed(context.Context, validation.RequestStatus, time.Duration) {}

// maxReasonLength bounds the stderr excerpt kept as the failure reason
const maxReasonLength = 4000

// Processor runs validation requests taken off the queue
type Processor struct {
	requestRepo validation.ValidationRequestRepository
	storage     appvalidation.FileStorage
	engine      EngineRunner
	recorder    OutcomeRecorder
	logger      *zap.Logger
}

// NewProcessor creates a new Processor. recorder may be nil.
func NewProcessor(
	requestRepo validation.ValidationRequestRepository,
	storage appvalidation.FileStorage,
	engine EngineRunner,
	recorder OutcomeRecorder,
	logger *zap.Logger,
) *Processor {
	if recorder == nil {
		recorder = noopOutcomeRecorder{}
	}
	return &Processor{
		requestRepo: requestRepo,
		storage:     storage,
		engine:      engine,
		recorder:    recorder,
		logger:      logger,
	}
}

// ProcessValidationRequest validates the file of one request. Requests that
// no longer exist or are not pending are skipped. Engine failures are stored
// on the request and do not make the task fail; only errors persisting the
// request state are returned.
func (p *Processor) ProcessValidationRequest(ctx context.Context, requestID int64, fileName string) error {
	logger := p.logger.With(zap.Int64("request_id", requestID), zap.String("file_name", fileName))

	req, err := p.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			logger.Warn("Validation request no longer exists, skipping")
			return nil
		}
		return fmt.Errorf("failed to load validation request %d: %w", requestID, err)
	}
	if req.FileName != fileName {
		logger.Warn("Task file name differs from the stored request", zap.String("stored_file_name", req.FileName))
	}

	if err := req.MarkAsInitiated(); err != nil {
		logger.Info("Validation request is not pending, skipping", zap.String("status", string(req.Status)))
		return nil
	}
	if err := p.requestRepo.Update(ctx, req); err != nil {
		return fmt.Errorf("failed to mark validation request %d as initiated: %w", requestID, err)
	}
	logger.Info("Validation started")

	started := time.Now()
	result, runErr := p.run(ctx, req)
	duration := time.Since(started)

	switch {
	case runErr != nil:
		logger.Error("Validation engine could not run", zap.Error(runErr))
		req.MarkAsFailed(truncateReason(runErr.Error()))
	case result.Succeeded():
		logger.Info("Validation completed", zap.Duration("duration", duration))
		req.MarkAsCompleted("")
	default:
		reason := failureReason(result)
		logger.Warn("Validation failed",
			zap.Int("exit_code", result.ExitCode),
			zap.Bool("timed_out", result.TimedOut),
			zap.Duration("duration", duration),
		)
		req.MarkAsFailed(reason)
	}

	p.recorder.RecordProcessed(ctx, req.Status, duration)

	// the task context may have expired while the engine ran
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := p.requestRepo.Update(saveCtx, req); err != nil {
		return fmt.Errorf("failed to store outcome of validation request %d: %w", requestID, err)
	}
	return nil
}

func (p *Processor) run(ctx context.Context, req *validation.ValidationRequest) (*EngineResult, error) {
	path, cleanup, err := p.storage.LocalPath(ctx, req.File)
	if err != nil {
		return nil, fmt.Errorf("stored file unavailable: %w", err)
	}
	defer cleanup()

	return p.engine.Run(ctx, req.ID, path)
}

func failureReason(result *EngineResult) string {
	if result.TimedOut {
		return truncateReason(fmt.Sprintf("Validation exceeded its time limit after %s", result.Duration.Round(time.Second)))
	}
	if result.Stderr != "" {
		return truncateReason(result.Stderr)
	}
	return fmt.Sprintf("Validation engine exited with code %d", result.ExitCode)
}

// truncateReason keeps the tail of s, where engines print the actual error
func truncateReason(s string) string {
	if len(s) <= maxReasonLength {
		return s
	}
	return "..." + strings.ToValidUTF8(s[len(s)-maxReasonLength:], "")
}
