package identity

import (
	"context"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create inserts a new user and assigns its ID
	Create(ctx context.Context, user *User) error

	// Update updates an existing user
	Update(ctx context.Context, user *User) error

	// FindByUsername finds a user by its (lower-cased) username
	FindByUsername(ctx context.Context, username string) (*User, error)
}
