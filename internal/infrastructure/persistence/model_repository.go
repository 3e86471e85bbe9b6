package persistence

import (
	"context"

	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/ifcvalidation/bff/internal/domain/validation"
	"github.com/ifcvalidation/bff/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormModelRepository implements ModelRepository using GORM
type GormModelRepository struct {
	db *gorm.DB
}

// NewGormModelRepository creates a new GormModelRepository
func NewGormModelRepository(db *gorm.DB) *GormModelRepository {
	return &GormModelRepository{db: db}
}

// UpdateStatus saves the per-check statuses of a model
func (r *GormModelRepository) UpdateStatus(ctx context.Context, model *validation.Model) error {
	result := r.db.WithContext(ctx).
		Model(&models.ModelModel{}).
		Where("id = ?", model.ID).
		Updates(models.StatusColumns(model))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormModelRepository implements ModelRepository
var _ validation.ModelRepository = (*GormModelRepository)(nil)
