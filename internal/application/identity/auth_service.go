package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ifcvalidation/bff/internal/domain/identity"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	"go.uber.org/zap"
)

// AuthServiceConfig contains the URLs the login flow redirects to
type AuthServiceConfig struct {
	PostLoginRedirectURL string // PUBLIC_URL/dashboard
	PublicURL            string // landing page after logout
}

// AuthService handles the single sign-on round-trip
type AuthService struct {
	userRepo identity.UserRepository
	provider OIDCProvider
	states   StateSigner
	config   AuthServiceConfig
	logger   *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	provider OIDCProvider,
	states StateSigner,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		provider: provider,
		states:   states,
		config:   config,
		logger:   logger,
	}
}

// errSSODisabled is returned when no identity provider is configured
var errSSODisabled = shared.NewDomainError("SSO_DISABLED", "Single sign-on is not configured")

// Enabled reports whether an identity provider is configured
func (s *AuthService) Enabled() bool {
	return s.provider != nil
}

// BeginLogin returns the identity provider URL for a new login
func (s *AuthService) BeginLogin(ctx context.Context) (*LoginRedirect, error) {
	if !s.Enabled() {
		return nil, errSSODisabled
	}
	nonce := uuid.NewString()
	state, err := s.states.Sign(nonce)
	if err != nil {
		s.logger.Error("Failed to sign login state", zap.Error(err))
		return nil, fmt.Errorf("failed to sign login state: %w", err)
	}

	return &LoginRedirect{
		URL:   s.provider.AuthCodeURL(state, nonce),
		State: state,
	}, nil
}

// CompleteLogin handles the provider callback. The user row is created on
// first login; such users stay inactive until an administrator enables them.
func (s *AuthService) CompleteLogin(ctx context.Context, code, state string) (*LoginResult, error) {
	if !s.Enabled() {
		return nil, errSSODisabled
	}
	if code == "" || state == "" {
		return nil, shared.ErrUnauthorized.Wrap(errors.New("missing code or state"))
	}

	nonce, err := s.states.Verify(state)
	if err != nil {
		s.logger.Warn("Login callback with invalid state", zap.Error(err))
		return nil, shared.ErrUnauthorized.Wrap(err)
	}

	claims, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("Authorization code exchange failed", zap.Error(err))
		return nil, shared.ErrUnauthorized.Wrap(err)
	}
	if claims.Nonce != nonce {
		s.logger.Warn("ID token nonce mismatch", zap.String("subject", claims.Subject))
		return nil, shared.ErrUnauthorized.Wrap(errors.New("nonce mismatch"))
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, shared.ErrUnauthorized.Wrap(errors.New("id token has no email claim"))
	}

	user, created, err := s.ensureUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.Bool("created", created),
		zap.Bool("active", user.IsActive))

	return &LoginResult{
		User: SessionUser{
			Email:      claims.Email,
			GivenName:  claims.GivenName,
			FamilyName: claims.FamilyName,
		},
		Redirect: s.config.PostLoginRedirectURL,
		Created:  created,
	}, nil
}

func (s *AuthService) ensureUser(ctx context.Context, claims *IDTokenClaims) (*identity.User, bool, error) {
	user, err := s.userRepo.FindByUsername(ctx, identity.NormalizeUsername(claims.Email))
	if err == nil {
		user.UpdateProfile(claims.GivenName, claims.FamilyName)
		user.RecordLogin()
		if err := s.userRepo.Update(ctx, user); err != nil {
			// Don't fail the login - just log the error
			s.logger.Error("Failed to update user after login", zap.Error(err))
		}
		return user, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	user, err = identity.NewUserFromClaims(claims.Email, claims.GivenName, claims.FamilyName)
	if err != nil {
		return nil, false, err
	}
	user.RecordLogin()
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// A concurrent callback created the row first
			existing, findErr := s.userRepo.FindByUsername(ctx, user.Username)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return user, true, nil
}

// LogoutURL is where the browser goes once the local session is cleared
func (s *AuthService) LogoutURL() string {
	if s.Enabled() {
		if u := s.provider.EndSessionURL(s.config.PublicURL); u != "" {
			return u
		}
	}
	return s.config.PublicURL
}
