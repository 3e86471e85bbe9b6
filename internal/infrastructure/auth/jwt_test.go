package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStateSecret = "test-state-secret-at-least-32-chars"

func newTestStateService(t *testing.T) *StateService {
	t.Helper()
	svc, err := NewStateService(testStateSecret, 10*time.Minute)
	require.NoError(t, err)
	return svc
}

func TestNewStateService(t *testing.T) {
	t.Run("requires a secret", func(t *testing.T) {
		_, err := NewStateService("", time.Minute)
		assert.ErrorIs(t, err, ErrMissingSecret)
	})

	t.Run("defaults the ttl", func(t *testing.T) {
		svc, err := NewStateService(testStateSecret, 0)
		require.NoError(t, err)
		assert.Equal(t, 10*time.Minute, svc.TTL())
	})
}

func TestStateService_SignVerify(t *testing.T) {
	svc := newTestStateService(t)

	state, err := svc.Sign("nonce-123")
	require.NoError(t, err)
	assert.NotEmpty(t, state)

	nonce, err := svc.Verify(state)
	require.NoError(t, err)
	assert.Equal(t, "nonce-123", nonce)

	other, err := svc.Sign("nonce-123")
	require.NoError(t, err)
	assert.NotEqual(t, state, other, "each state carries its own id")
}

func TestStateService_Sign_RequiresNonce(t *testing.T) {
	svc := newTestStateService(t)
	_, err := svc.Sign("")
	assert.ErrorIs(t, err, ErrMissingNonce)
}

func TestStateService_Verify_Errors(t *testing.T) {
	svc := newTestStateService(t)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewStateService("another-secret-of-sufficient-length", time.Minute)
		require.NoError(t, err)
		state, err := other.Sign("nonce")
		require.NoError(t, err)

		_, err = svc.Verify(state)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("expired", func(t *testing.T) {
		expired := newTestStateService(t)
		expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
		state, err := expired.Sign("nonce")
		require.NoError(t, err)

		_, err = svc.Verify(state)
		assert.ErrorIs(t, err, ErrExpiredState)
	})

	t.Run("not yet valid", func(t *testing.T) {
		future := newTestStateService(t)
		future.now = func() time.Time { return time.Now().Add(time.Hour) }
		state, err := future.Sign("nonce")
		require.NoError(t, err)

		_, err = svc.Verify(state)
		assert.ErrorIs(t, err, ErrStateNotYetValid)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		claims := &StateClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
			Nonce: "nonce",
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testStateSecret))
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("missing nonce", func(t *testing.T) {
		claims := &StateClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    stateIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testStateSecret))
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, ErrMissingNonce)
	})

	t.Run("unsigned token", func(t *testing.T) {
		claims := &StateClaims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: stateIssuer},
			Nonce:            "nonce",
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}
