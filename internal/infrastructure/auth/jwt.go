package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	appidentity "github.com/ifcvalidation/bff/internal/application/identity"
)

// Common errors
var (
	ErrInvalidState     = errors.New("invalid login state")
	ErrExpiredState     = errors.New("login state has expired")
	ErrStateNotYetValid = errors.New("login state is not yet valid")
	ErrMissingNonce     = errors.New("missing nonce in login state")
	ErrMissingSecret    = errors.New("state secret is required")
)

// stateIssuer scopes state tokens so they cannot be mistaken for other JWTs
const stateIssuer = "ifc-bff/login-state"

// StateClaims are carried by the OAuth state parameter
type StateClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

// StateService signs and verifies the OAuth state parameter as a short-lived
// HMAC JWT, so the callback needs no server-side storage.
type StateService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Ensure StateService implements StateSigner
var _ appidentity.StateSigner = (*StateService)(nil)

// NewStateService creates a state signer
func NewStateService(secret string, ttl time.Duration) (*StateService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Sign returns a state token carrying nonce
func (s *StateService) Sign(nonce string) (string, error) {
	if nonce == "" {
		return "", ErrMissingNonce
	}
	now := s.now()
	claims := &StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    stateIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Nonce: nonce,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates a state token and returns its nonce
func (s *StateService) Verify(state string) (string, error) {
	token, err := jwt.ParseWithClaims(state, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidState
		}
		return s.secret, nil
	}, jwt.WithIssuer(stateIssuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredState
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return "", ErrStateNotYetValid
		}
		return "", ErrInvalidState
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidState
	}
	if claims.Nonce == "" {
		return "", ErrMissingNonce
	}
	return claims.Nonce, nil
}

// TTL returns how long a state stays valid
func (s *StateService) TTL() time.Duration {
	return s.ttl
}
