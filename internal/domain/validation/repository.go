package validation

import (
	"context"
)

// RequestReader reads validation requests scoped to their owner
type RequestReader interface {
	// FindByIDForUser finds a request created by userID, with its model loaded
	FindByIDForUser(ctx context.Context, userID, id int64) (*ValidationRequest, error)

	// ListForUser returns a window of the user's requests ordered by progress
	// ascending, then most recently updated first
	ListForUser(ctx context.Context, userID int64, offset, limit int) ([]*ValidationRequest, error)

	// CountForUser returns how many requests the user has
	CountForUser(ctx context.Context, userID int64) (int64, error)
}

// RequestWriter persists validation requests
type RequestWriter interface {
	// Create inserts a new request and assigns its ID
	Create(ctx context.Context, req *ValidationRequest) error

	// Update saves the lifecycle fields of an existing request
	Update(ctx context.Context, req *ValidationRequest) error

	// Delete removes a request together with its model, tasks and outcomes
	Delete(ctx context.Context, id int64) error
}

// ValidationRequestRepository combines reads and writes of requests
type ValidationRequestRepository interface {
	RequestReader
	RequestWriter

	// FindByID finds a request regardless of owner. Used by the worker.
	FindByID(ctx context.Context, id int64) (*ValidationRequest, error)
}

// ModelRepository persists extracted model facts
type ModelRepository interface {
	// UpdateStatus saves the per-check statuses of a model
	UpdateStatus(ctx context.Context, model *Model) error
}

// ValidationTaskRepository reads the engine steps recorded for a request.
// Tasks are written by the validation engine itself.
type ValidationTaskRepository interface {
	// FindLatestByType returns the most recent task of the given type for a
	// request, or shared.ErrNotFound
	FindLatestByType(ctx context.Context, requestID int64, taskType TaskType) (*ValidationTask, error)
}

// ValidationOutcomeRepository reads engine findings
type ValidationOutcomeRepository interface {
	// ListByTask returns the outcomes of a task ordered by ID, with instances loaded
	ListByTask(ctx context.Context, taskID int64) ([]*ValidationOutcome, error)
}
