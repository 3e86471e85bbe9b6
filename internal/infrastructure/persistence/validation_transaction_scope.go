package persistence

import (
	"context"

	appvalidation "github.com/ifcvalidation/bff/internal/application/validation"
	"github.com/ifcvalidation/bff/internal/domain/validation"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appvalidation.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// RequestRepo returns the request repository scoped to the current transaction.
func (r *gormTransactionalRepositories) RequestRepo() validation.ValidationRequestRepository {
	return NewGormValidationRequestRepository(r.tx)
}

// ModelRepo returns the model repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ModelRepo() validation.ModelRepository {
	return NewGormModelRepository(r.tx)
}

var (
	_ appvalidation.TransactionScope          = (*GormTransactionScope)(nil)
	_ appvalidation.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
