package identity

import (
	"errors"
	"testing"

	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserFromClaims(t *testing.T) {
	t.Run("normalizes username from email", func(t *testing.T) {
		user, err := NewUserFromClaims("  Jane.Doe@Example.COM ", "Jane", "Doe")

		require.NoError(t, err)
		assert.Equal(t, "jane.doe@example.com", user.Username)
		assert.Equal(t, "Jane.Doe@Example.COM", user.Email)
		assert.Equal(t, "Jane", user.FirstName)
		assert.Equal(t, "Doe", user.LastName)
		assert.True(t, user.IsNew())
	})

	t.Run("new users start inactive", func(t *testing.T) {
		user, err := NewUserFromClaims("jane@example.com", "", "")

		require.NoError(t, err)
		assert.False(t, user.IsActive)
		assert.False(t, user.IsSuperuser)
	})

	t.Run("fails with empty email", func(t *testing.T) {
		_, err := NewUserFromClaims("", "Jane", "Doe")

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INVALID_EMAIL", domainErr.Code)
	})

	t.Run("fails with malformed email", func(t *testing.T) {
		_, err := NewUserFromClaims("not-an-address", "Jane", "Doe")

		assert.Error(t, err)
	})
}

func TestNewDevelopmentUser(t *testing.T) {
	user, err := NewDevelopmentUser()

	require.NoError(t, err)
	assert.Equal(t, DevelopmentUsername, user.Username)
	assert.Equal(t, "noreply@localhost", user.Email)
	assert.Equal(t, "Dev User", user.FullName())
	assert.True(t, user.IsActive)
	assert.True(t, user.IsSuperuser)
	assert.True(t, user.IsStaff)
	assert.True(t, user.CheckPassword(DevelopmentUsername))
	assert.False(t, user.CheckPassword("wrong"))
}

func TestUser_FullName(t *testing.T) {
	tests := []struct {
		name  string
		first string
		last  string
		want  string
	}{
		{"both names", "Jane", "Doe", "Jane Doe"},
		{"first only", "Jane", "", "Jane"},
		{"last only", "", "Doe", "Doe"},
		{"none", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{FirstName: tt.first, LastName: tt.last}
			assert.Equal(t, tt.want, u.FullName())
		})
	}
}

func TestUser_UpdateProfile(t *testing.T) {
	u := &User{FirstName: "Jane", LastName: "Doe"}

	u.UpdateProfile("", "Smith")

	assert.Equal(t, "Jane", u.FirstName)
	assert.Equal(t, "Smith", u.LastName)
}

func TestUser_Activation(t *testing.T) {
	u := &User{}

	u.Activate()
	assert.True(t, u.IsActive)

	u.Deactivate()
	assert.False(t, u.IsActive)
}

func TestUser_CheckPassword_NoHash(t *testing.T) {
	u := &User{}
	assert.False(t, u.CheckPassword(""))
}
