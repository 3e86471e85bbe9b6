// Package validation holds the validation request aggregate and the
// read-only records the external validation engine writes against it.
package validation

import (
	"strings"
	"time"

	"github.com/ifcvalidation/bff/internal/domain/shared"
)

// RequestStatus is the lifecycle state of a validation request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusInitiated RequestStatus = "INITIATED"
	RequestStatusCompleted RequestStatus = "COMPLETED"
	RequestStatusFailed    RequestStatus = "FAILED"
)

// IsValid checks if the status is a known value
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusInitiated, RequestStatusCompleted, RequestStatusFailed:
		return true
	}
	return false
}

// FailedProgress is the progress value the dashboard uses to render a failed request
const FailedProgress = -2

// LegacyDateLayout is the timestamp format the dashboard expects
const LegacyDateLayout = "2006-01-02 15:04:05"

// ResubmittedReason is recorded when a user re-runs a validation from the dashboard
const ResubmittedReason = "Resubmitted for processing via React UI"

// ValidationRequest is one uploaded file queued for validation.
type ValidationRequest struct {
	shared.BaseEntity
	FileName     string
	File         string // storage key
	Size         int64
	Status       RequestStatus
	StatusReason string
	Progress     int
	Started      *time.Time
	Completed    *time.Time
	UpdatedAt    *time.Time
	CreatedBy    int64
	UpdatedBy    *int64
	Model        *Model
}

// NewValidationRequest creates a pending request for a stored file
func NewValidationRequest(createdBy int64, fileName, storageKey string, size int64) (*ValidationRequest, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if len(fileName) > 1024 {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot exceed 1024 characters")
	}
	if storageKey == "" {
		return nil, shared.NewDomainError("INVALID_FILE", "Stored file reference cannot be empty")
	}
	if size < 0 {
		return nil, shared.NewDomainError("INVALID_SIZE", "File size cannot be negative")
	}
	if createdBy <= 0 {
		return nil, shared.NewDomainError("INVALID_USER", "Request must have an owner")
	}

	return &ValidationRequest{
		BaseEntity: shared.NewBaseEntity(),
		FileName:   fileName,
		File:       storageKey,
		Size:       size,
		Status:     RequestStatusPending,
		CreatedBy:  createdBy,
	}, nil
}

// MarkAsPending puts the request back in the queue
func (r *ValidationRequest) MarkAsPending(reason string) {
	r.Status = RequestStatusPending
	r.StatusReason = reason
	r.Progress = 0
	r.Started = nil
	r.Completed = nil
	r.touch()
}

// MarkAsInitiated records that a worker picked up the request
func (r *ValidationRequest) MarkAsInitiated() error {
	if r.Status != RequestStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending requests can be initiated")
	}
	now := time.Now()
	r.Status = RequestStatusInitiated
	r.StatusReason = ""
	r.Started = &now
	r.Completed = nil
	r.touch()
	return nil
}

// MarkAsCompleted finishes the request successfully
func (r *ValidationRequest) MarkAsCompleted(reason string) {
	now := time.Now()
	r.Status = RequestStatusCompleted
	r.StatusReason = reason
	r.Progress = 100
	r.Completed = &now
	r.touch()
}

// MarkAsFailed finishes the request with an error
func (r *ValidationRequest) MarkAsFailed(reason string) {
	now := time.Now()
	r.Status = RequestStatusFailed
	r.StatusReason = reason
	r.Completed = &now
	r.touch()
}

// SetUpdatedBy records the user acting on the request
func (r *ValidationRequest) SetUpdatedBy(userID int64) {
	r.UpdatedBy = &userID
}

// DisplayProgress is the progress shown on the dashboard. Failed requests
// report FailedProgress regardless of how far they got.
func (r *ValidationRequest) DisplayProgress() int {
	if r.Status == RequestStatusFailed {
		return FailedProgress
	}
	return r.Progress
}

// DisplayDate is the last update time, or creation time if never updated
func (r *ValidationRequest) DisplayDate() string {
	if r.UpdatedAt != nil {
		return r.UpdatedAt.Format(LegacyDateLayout)
	}
	return r.CreatedAt.Format(LegacyDateLayout)
}

func (r *ValidationRequest) touch() {
	now := time.Now()
	r.UpdatedAt = &now
}
