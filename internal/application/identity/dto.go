package identity

import "strings"

// SessionUser is the identity provider profile kept in the browser session
// under the "user" key.
type SessionUser struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

// HasEmail reports whether the session carries a usable e-mail claim
func (u *SessionUser) HasEmail() bool {
	return u != nil && strings.TrimSpace(u.Email) != ""
}

// IDTokenClaims are the verified claims of an ID token
type IDTokenClaims struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
	Nonce      string
}

// LoginRedirect starts the authorization code flow
type LoginRedirect struct {
	URL   string
	State string
}

// LoginResult contains the result of a completed login
type LoginResult struct {
	User     SessionUser
	Redirect string
	Created  bool
}
