package persistence

import (
	"context"
	"errors"

	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/ifcvalidation/bff/internal/domain/validation"
	"github.com/ifcvalidation/bff/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormValidationTaskRepository implements ValidationTaskRepository using GORM
type GormValidationTaskRepository struct {
	db *gorm.DB
}

// NewGormValidationTaskRepository creates a new GormValidationTaskRepository
func NewGormValidationTaskRepository(db *gorm.DB) *GormValidationTaskRepository {
	return &GormValidationTaskRepository{db: db}
}

// FindLatestByType returns the most recent task of the given type for a request
func (r *GormValidationTaskRepository) FindLatestByType(ctx context.Context, requestID int64, taskType validation.TaskType) (*validation.ValidationTask, error) {
	var model models.ValidationTaskModel
	if err := r.db.WithContext(ctx).
		Where("request_id = ? AND type = ?", requestID, string(taskType)).
		Order("id DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormValidationTaskRepository implements ValidationTaskRepository
var _ validation.ValidationTaskRepository = (*GormValidationTaskRepository)(nil)
