package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/ifcvalidation/bff/internal/domain/identity"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCurrentUserResolver_SessionUser(t *testing.T) {
	ctx := context.Background()

	t.Run("finds the account by lower-cased email", func(t *testing.T) {
		repo := new(MockUserRepository)
		user := &identity.User{Username: "jane@example.org", IsActive: true}
		repo.On("FindByUsername", ctx, "jane@example.org").Return(user, nil)

		r := NewCurrentUserResolver(repo, false, zap.NewNop())
		got, err := r.Resolve(ctx, &SessionUser{Email: " Jane@Example.org "})
		require.NoError(t, err)
		assert.Same(t, user, got)
	})

	t.Run("missing account is unauthenticated, even in development", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByUsername", ctx, "ghost@example.org").Return(nil, shared.ErrNotFound)

		r := NewCurrentUserResolver(repo, true, zap.NewNop())
		got, err := r.Resolve(ctx, &SessionUser{Email: "ghost@example.org"})
		require.NoError(t, err)
		assert.Nil(t, got)
		repo.AssertNumberOfCalls(t, "FindByUsername", 1)
	})

	t.Run("repository errors propagate", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByUsername", ctx, "jane@example.org").Return(nil, errors.New("db down"))

		r := NewCurrentUserResolver(repo, false, zap.NewNop())
		_, err := r.Resolve(ctx, &SessionUser{Email: "jane@example.org"})
		assert.Error(t, err)
	})
}

func TestCurrentUserResolver_NoSession(t *testing.T) {
	ctx := context.Background()

	t.Run("production is unauthenticated", func(t *testing.T) {
		repo := new(MockUserRepository)
		r := NewCurrentUserResolver(repo, false, zap.NewNop())

		got, err := r.Resolve(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = r.Resolve(ctx, &SessionUser{})
		require.NoError(t, err)
		assert.Nil(t, got)
		repo.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
	})

	t.Run("development reuses the development account", func(t *testing.T) {
		repo := new(MockUserRepository)
		dev := &identity.User{Username: identity.DevelopmentUsername, IsActive: true}
		repo.On("FindByUsername", ctx, identity.DevelopmentUsername).Return(dev, nil)

		r := NewCurrentUserResolver(repo, true, zap.NewNop())
		got, err := r.Resolve(ctx, nil)
		require.NoError(t, err)
		assert.Same(t, dev, got)
	})

	t.Run("development creates the account once", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByUsername", ctx, identity.DevelopmentUsername).Return(nil, shared.ErrNotFound)
		repo.On("Create", ctx, mock.MatchedBy(func(u *identity.User) bool {
			return u.Username == identity.DevelopmentUsername && u.IsActive && u.IsSuperuser
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*identity.User).ID = 1
		}).Return(nil)

		r := NewCurrentUserResolver(repo, true, zap.NewNop())
		got, err := r.Resolve(ctx, nil)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(1), got.ID)
		assert.True(t, got.CheckPassword(identity.DevelopmentUsername))
	})
}
