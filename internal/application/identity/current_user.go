package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/ifcvalidation/bff/internal/domain/identity"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	"go.uber.org/zap"
)

// CurrentUserResolver maps a browser session onto a user account
type CurrentUserResolver struct {
	userRepo    identity.UserRepository
	development bool
	logger      *zap.Logger

	// serializes get-or-create of the development account
	devMu sync.Mutex
}

// NewCurrentUserResolver creates a resolver. When development is true,
// requests without a session act as the local development account.
func NewCurrentUserResolver(userRepo identity.UserRepository, development bool, logger *zap.Logger) *CurrentUserResolver {
	return &CurrentUserResolver{
		userRepo:    userRepo,
		development: development,
		logger:      logger,
	}
}

// Resolve returns the current user, or nil when the request is unauthenticated.
// A session user without a matching account is unauthenticated.
func (r *CurrentUserResolver) Resolve(ctx context.Context, sessionUser *SessionUser) (*identity.User, error) {
	if sessionUser.HasEmail() {
		user, err := r.userRepo.FindByUsername(ctx, identity.NormalizeUsername(sessionUser.Email))
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				r.logger.Warn("Session user has no account", zap.String("email", sessionUser.Email))
				return nil, nil
			}
			return nil, err
		}
		return user, nil
	}

	if r.development {
		return r.developmentUser(ctx)
	}
	return nil, nil
}

func (r *CurrentUserResolver) developmentUser(ctx context.Context) (*identity.User, error) {
	r.devMu.Lock()
	defer r.devMu.Unlock()

	user, err := r.userRepo.FindByUsername(ctx, identity.DevelopmentUsername)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	user, err = identity.NewDevelopmentUser()
	if err != nil {
		return nil, err
	}
	if err := r.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return r.userRepo.FindByUsername(ctx, identity.DevelopmentUsername)
		}
		return nil, err
	}
	r.logger.Info("Created development user", zap.Int64("user_id", user.ID))
	return user, nil
}
