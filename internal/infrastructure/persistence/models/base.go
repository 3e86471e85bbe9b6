package models

import (
	"time"

	"github.com/ifcvalidation/bff/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
}

// All returns every persistence model, parents first. Tests use it with AutoMigrate.
func All() []any {
	return []any{
		&UserModel{},
		&ValidationRequestModel{},
		&AuthoringToolModel{},
		&ModelModel{},
		&ModelInstanceModel{},
		&ValidationTaskModel{},
		&ValidationOutcomeModel{},
	}
}
