package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ifcvalidation/bff/internal/domain/validation"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BacklogProvider reports how many requests sit in each lifecycle state
type BacklogProvider interface {
	CountByStatus(ctx context.Context) (map[validation.RequestStatus]int64, error)
}

// ValidationMetrics counts uploads, queue submissions and worker outcomes.
// It also samples the request backlog periodically when a provider is set.
type ValidationMetrics struct {
	logger *zap.Logger

	uploadsTotal      *Counter
	uploadBytesTotal  *Counter
	enqueueTotal      *Counter
	processedTotal    *Counter
	processedDuration *Histogram
	backlog           *Gauge

	backlogProvider BacklogProvider

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
	wg          sync.WaitGroup
}

// ValidationMetricsConfig holds configuration for validation metrics.
type ValidationMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	BacklogProvider BacklogProvider
}

// NewValidationMetrics creates the validation instruments
func NewValidationMetrics(cfg ValidationMetricsConfig) (*ValidationMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	vm := &ValidationMetrics{
		logger:          logger,
		backlogProvider: cfg.BacklogProvider,
		stopChan:        make(chan struct{}),
	}

	var err error
	if vm.uploadsTotal, err = NewCounter(cfg.Meter, "ifc_upload_total", "Number of uploaded IFC files", "{files}"); err != nil {
		return nil, err
	}
	if vm.uploadBytesTotal, err = NewCounter(cfg.Meter, "ifc_upload_bytes_total", "Bytes of uploaded IFC files", "By"); err != nil {
		return nil, err
	}
	if vm.enqueueTotal, err = NewCounter(cfg.Meter, "ifc_validation_enqueue_total", "Validation tasks submitted to the queue", "{tasks}"); err != nil {
		return nil, err
	}
	if vm.processedTotal, err = NewCounter(cfg.Meter, "ifc_validation_processed_total", "Validation requests finished by the worker", "{requests}"); err != nil {
		return nil, err
	}
	if vm.processedDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ifc_validation_duration_seconds",
		Description: "Wall time of validation engine runs",
		Unit:        "s",
		Boundaries:  ValidationDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if vm.backlog, err = NewGauge(cfg.Meter, "ifc_validation_requests", "Validation requests per lifecycle state", "{requests}"); err != nil {
		return nil, err
	}

	return vm, nil
}

// RecordUpload counts one stored upload
func (vm *ValidationMetrics) RecordUpload(ctx context.Context, size int64) {
	vm.uploadsTotal.Inc(ctx)
	vm.uploadBytesTotal.Add(ctx, size)
}

// RecordEnqueue counts one queue submission
func (vm *ValidationMetrics) RecordEnqueue(ctx context.Context, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	vm.enqueueTotal.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordProcessed counts one finished request and its engine wall time
func (vm *ValidationMetrics) RecordProcessed(ctx context.Context, status validation.RequestStatus, duration time.Duration) {
	attr := AttrRequestStatus.String(string(status))
	vm.processedTotal.Inc(ctx, attr)
	vm.processedDuration.RecordDuration(ctx, duration, attr)
}

// StartPeriodicCollection samples the backlog every interval (default 1 minute)
// until Stop is called or ctx is cancelled. It is a no-op without a provider.
func (vm *ValidationMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if vm.backlogProvider == nil {
		return
	}
	vm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		vm.wg.Add(1)
		go vm.runPeriodicCollection(ctx, interval)
	})
}

func (vm *ValidationMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	defer vm.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	vm.collectBacklog(ctx)
	for {
		select {
		case <-vm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			vm.collectBacklog(ctx)
		}
	}
}

func (vm *ValidationMetrics) collectBacklog(ctx context.Context) {
	counts, err := vm.backlogProvider.CountByStatus(ctx)
	if err != nil {
		vm.logger.Warn("Failed to count validation requests for metrics", zap.Error(err))
		return
	}
	for _, status := range []validation.RequestStatus{
		validation.RequestStatusPending,
		validation.RequestStatusInitiated,
		validation.RequestStatusCompleted,
		validation.RequestStatusFailed,
	} {
		vm.backlog.Record(ctx, counts[status], AttrRequestStatus.String(string(status)))
	}
}

// Stop ends periodic collection and waits for the collector to exit
func (vm *ValidationMetrics) Stop() {
	vm.stopOnce.Do(func() {
		close(vm.stopChan)
	})
	vm.wg.Wait()
}
