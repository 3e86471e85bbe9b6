package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	appidentity "github.com/ifcvalidation/bff/internal/application/identity"
	"github.com/ifcvalidation/bff/internal/infrastructure/config"
	"golang.org/x/oauth2"
)

// Ensure OIDCClient implements OIDCProvider
var _ appidentity.OIDCProvider = (*OIDCClient)(nil)

// providerMetadata holds the discovery fields go-oidc does not expose
type providerMetadata struct {
	Issuer        string `json:"issuer"`
	JWKSURL       string `json:"jwks_uri"`
	EndSessionURL string `json:"end_session_endpoint"`
}

// idTokenClaims covers both the standard email claim and the emails array
// Azure AD B2C user flows emit
type idTokenClaims struct {
	Email      string   `json:"email"`
	Emails     []string `json:"emails"`
	GivenName  string   `json:"given_name"`
	FamilyName string   `json:"family_name"`
}

// OIDCClient runs the authorization code flow against an OpenID provider
// such as an Azure AD B2C user flow.
type OIDCClient struct {
	oauth2    oauth2.Config
	verifier  *oidc.IDTokenVerifier
	logoutURL string
}

// NewOIDCClient discovers the provider of the configured user flow.
//
// B2C serves its discovery document under the user flow path while the
// issuer it reports contains the tenant id, so the issuer is taken from the
// document itself and tokens are verified against it.
func NewOIDCClient(ctx context.Context, cfg config.AuthConfig, callbackURL string) (*OIDCClient, error) {
	if !cfg.Enabled() {
		return nil, errors.New("auth client id and authority are required")
	}

	issuerURL := cfg.IssuerURL()
	provider, err := oidc.NewProvider(oidc.InsecureIssuerURLContext(ctx, issuerURL), issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover identity provider: %w", err)
	}

	var meta providerMetadata
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("failed to read provider metadata: %w", err)
	}
	if meta.Issuer == "" || meta.JWKSURL == "" {
		return nil, errors.New("provider metadata lacks issuer or jwks_uri")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	logoutURL := cfg.LogoutURL
	if logoutURL == "" {
		logoutURL = meta.EndSessionURL
	}

	keySet := oidc.NewRemoteKeySet(ctx, meta.JWKSURL)
	return &OIDCClient{
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  callbackURL,
			Scopes:       scopes,
		},
		verifier:  oidc.NewVerifier(meta.Issuer, keySet, &oidc.Config{ClientID: cfg.ClientID}),
		logoutURL: logoutURL,
	}, nil
}

// AuthCodeURL returns the authorization endpoint URL for a login
func (c *OIDCClient) AuthCodeURL(state, nonce string) string {
	return c.oauth2.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Exchange trades the code for tokens and verifies the ID token
func (c *OIDCClient) Exchange(ctx context.Context, code string) (*appidentity.IDTokenClaims, error) {
	token, err := c.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("token response has no id_token")
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode id token claims: %w", err)
	}

	email := claims.Email
	if email == "" && len(claims.Emails) > 0 {
		email = claims.Emails[0]
	}

	return &appidentity.IDTokenClaims{
		Subject:    idToken.Subject,
		Email:      strings.TrimSpace(email),
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Nonce:      idToken.Nonce,
	}, nil
}

// EndSessionURL returns the provider logout URL with the post-logout redirect
func (c *OIDCClient) EndSessionURL(postLogoutRedirect string) string {
	if c.logoutURL == "" {
		return ""
	}
	u, err := url.Parse(c.logoutURL)
	if err != nil {
		return ""
	}
	if postLogoutRedirect != "" {
		q := u.Query()
		q.Set("post_logout_redirect_uri", postLogoutRedirect)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
