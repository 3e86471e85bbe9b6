package persistence

import (
	"context"
	"errors"

	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/ifcvalidation/bff/internal/domain/validation"
	"github.com/ifcvalidation/bff/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormValidationRequestRepository implements ValidationRequestRepository using GORM
type GormValidationRequestRepository struct {
	db *gorm.DB
}

// NewGormValidationRequestRepository creates a new GormValidationRequestRepository
func NewGormValidationRequestRepository(db *gorm.DB) *GormValidationRequestRepository {
	return &GormValidationRequestRepository{db: db}
}

// withModel preloads the model and its authoring tool, which every legacy projection reads
func withModel(db *gorm.DB) *gorm.DB {
	return db.Preload("Model").Preload("Model.ProducedBy")
}

// FindByID finds a request regardless of its owner
func (r *GormValidationRequestRepository) FindByID(ctx context.Context, id int64) (*validation.ValidationRequest, error) {
	var model models.ValidationRequestModel
	if err := withModel(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUser finds a request created by the given user
func (r *GormValidationRequestRepository) FindByIDForUser(ctx context.Context, userID, id int64) (*validation.ValidationRequest, error) {
	var model models.ValidationRequestModel
	if err := withModel(r.db.WithContext(ctx)).
		Where("id = ? AND created_by_id = ?", id, userID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListForUser returns a window of the user's requests, least progressed first
// and then most recently updated first.
func (r *GormValidationRequestRepository) ListForUser(ctx context.Context, userID int64, offset, limit int) ([]*validation.ValidationRequest, error) {
	if limit <= 0 {
		return []*validation.ValidationRequest{}, nil
	}

	var rows []models.ValidationRequestModel
	if err := withModel(r.db.WithContext(ctx)).
		Where("created_by_id = ?", userID).
		Order("progress ASC").
		Order("updated DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]*validation.ValidationRequest, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, nil
}

// CountForUser returns how many requests the user has
func (r *GormValidationRequestRepository) CountForUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ValidationRequestModel{}).
		Where("created_by_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts all requests per status, for the backlog gauge
func (r *GormValidationRequestRepository) CountByStatus(ctx context.Context) (map[validation.RequestStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ValidationRequestModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[validation.RequestStatus]int64, len(rows))
	for _, row := range rows {
		counts[validation.RequestStatus(row.Status)] = row.Count
	}
	return counts, nil
}

// Create inserts a new request and assigns its ID
func (r *GormValidationRequestRepository) Create(ctx context.Context, req *validation.ValidationRequest) error {
	model := models.ValidationRequestModelFromDomain(req)
	if err := r.db.WithContext(ctx).Omit("Model").Create(model).Error; err != nil {
		return err
	}
	req.ID = model.ID
	req.CreatedAt = model.CreatedAt
	return nil
}

// Update saves the lifecycle fields of an existing request
func (r *GormValidationRequestRepository) Update(ctx context.Context, req *validation.ValidationRequest) error {
	result := r.db.WithContext(ctx).
		Model(&models.ValidationRequestModel{}).
		Where("id = ?", req.ID).
		Updates(map[string]any{
			"status":        string(req.Status),
			"status_reason": req.StatusReason,
			"progress":      req.Progress,
			"started":       req.Started,
			"completed":     req.Completed,
			"updated":       req.UpdatedAt,
			"updated_by_id": req.UpdatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a request together with its model, instances, tasks and outcomes.
// Children are removed explicitly so the result does not depend on the
// database enforcing ON DELETE CASCADE.
func (r *GormValidationRequestRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)

	taskIDs := db.Model(&models.ValidationTaskModel{}).Select("id").Where("request_id = ?", id)
	modelIDs := db.Model(&models.ModelModel{}).Select("id").Where("request_id = ?", id)

	if err := db.Where("validation_task_id IN (?)", taskIDs).
		Delete(&models.ValidationOutcomeModel{}).Error; err != nil {
		return err
	}
	if err := db.Where("request_id = ?", id).
		Delete(&models.ValidationTaskModel{}).Error; err != nil {
		return err
	}
	if err := db.Where("model_id IN (?)", modelIDs).
		Delete(&models.ModelInstanceModel{}).Error; err != nil {
		return err
	}
	if err := db.Where("request_id = ?", id).
		Delete(&models.ModelModel{}).Error; err != nil {
		return err
	}

	result := db.Delete(&models.ValidationRequestModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormValidationRequestRepository implements ValidationRequestRepository
var _ validation.ValidationRequestRepository = (*GormValidationRequestRepository)(nil)
