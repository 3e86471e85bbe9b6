package models

import (
	"time"

	"github.com/ifcvalidation/bff/internal/domain/identity"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	BaseModel
	Username     string `gorm:"type:varchar(150);not null;uniqueIndex"`
	Email        string `gorm:"type:varchar(254);not null;default:''"`
	FirstName    string `gorm:"type:varchar(150);not null;default:''"`
	LastName     string `gorm:"type:varchar(150);not null;default:''"`
	PasswordHash string `gorm:"column:password;type:varchar(128);not null;default:''"`
	IsActive     bool   `gorm:"not null"`
	IsSuperuser  bool   `gorm:"not null;default:false"`
	IsStaff      bool   `gorm:"not null;default:false"`
	LastLogin    *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseEntity:   m.BaseModel.ToDomain(),
		Username:     m.Username,
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		PasswordHash: m.PasswordHash,
		IsActive:     m.IsActive,
		IsSuperuser:  m.IsSuperuser,
		IsStaff:      m.IsStaff,
		LastLogin:    m.LastLogin,
	}
}

// UserModelFromDomain creates a persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		IsSuperuser:  u.IsSuperuser,
		IsStaff:      u.IsStaff,
		LastLogin:    u.LastLogin,
	}
	m.FromDomainBaseEntity(u.BaseEntity)
	return m
}
