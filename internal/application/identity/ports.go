package identity

import "context"

// OIDCProvider runs the authorization code flow against the identity provider
type OIDCProvider interface {
	// AuthCodeURL returns the provider URL the browser is sent to
	AuthCodeURL(state, nonce string) string

	// Exchange trades the authorization code for tokens and returns the
	// verified ID token claims
	Exchange(ctx context.Context, code string) (*IDTokenClaims, error)

	// EndSessionURL returns the provider logout URL, or "" when the provider
	// has no end-session endpoint
	EndSessionURL(postLogoutRedirect string) string
}

// StateSigner protects the login round-trip against forged callbacks
type StateSigner interface {
	// Sign returns an opaque state value carrying the nonce
	Sign(nonce string) (string, error)

	// Verify checks the state and returns the nonce it carries
	Verify(state string) (string, error)
}
