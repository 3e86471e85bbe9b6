package validation

import (
	"context"

	"github.com/ifcvalidation/bff/internal/domain/validation"
)

// TransactionScope provides transactional access to validation repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories a batch operation
// touches. All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	RequestRepo() validation.ValidationRequestRepository
	ModelRepo() validation.ModelRepository
}
