package persistence

import (
	"context"

	"github.com/ifcvalidation/bff/internal/domain/validation"
	"github.com/ifcvalidation/bff/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormValidationOutcomeRepository implements ValidationOutcomeRepository using GORM
type GormValidationOutcomeRepository struct {
	db *gorm.DB
}

// NewGormValidationOutcomeRepository creates a new GormValidationOutcomeRepository
func NewGormValidationOutcomeRepository(db *gorm.DB) *GormValidationOutcomeRepository {
	return &GormValidationOutcomeRepository{db: db}
}

// ListByTask returns the outcomes of a task in insertion order with their instances
func (r *GormValidationOutcomeRepository) ListByTask(ctx context.Context, taskID int64) ([]*validation.ValidationOutcome, error) {
	var rows []models.ValidationOutcomeModel
	if err := r.db.WithContext(ctx).
		Preload("Instance").
		Where("validation_task_id = ?", taskID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]*validation.ValidationOutcome, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, nil
}

// Ensure GormValidationOutcomeRepository implements ValidationOutcomeRepository
var _ validation.ValidationOutcomeRepository = (*GormValidationOutcomeRepository)(nil)
