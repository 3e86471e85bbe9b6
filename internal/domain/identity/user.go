package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/ifcvalidation/bff/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DevelopmentUsername is the account used for local development without SSO
const DevelopmentUsername = "development"

// Password cost for bcrypt
const bcryptCost = 12

var lower = cases.Lower(language.Und)

// User is an account of the validation service.
// Accounts created through SSO start inactive and are parked in the waiting
// zone until an administrator activates them.
type User struct {
	shared.BaseEntity
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
	IsStaff      bool
	LastLogin    *time.Time
}

// NormalizeUsername folds an SSO e-mail into the username key used for lookups
func NormalizeUsername(email string) string {
	return lower.String(strings.TrimSpace(email))
}

// NewUserFromClaims creates an inactive user from identity provider claims
func NewUserFromClaims(email, givenName, familyName string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Email claim cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Email claim is not a valid address")
	}

	return &User{
		BaseEntity: shared.NewBaseEntity(),
		Username:   NormalizeUsername(email),
		Email:      email,
		FirstName:  strings.TrimSpace(givenName),
		LastName:   strings.TrimSpace(familyName),
		IsActive:   false,
	}, nil
}

// NewDevelopmentUser creates the local superuser used when running in development
func NewDevelopmentUser() (*User, error) {
	hash, err := hashPassword(DevelopmentUsername)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	return &User{
		BaseEntity:   shared.NewBaseEntity(),
		Username:     DevelopmentUsername,
		Email:        "noreply@localhost",
		FirstName:    "Dev",
		LastName:     "User",
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  true,
		IsStaff:      true,
	}, nil
}

// FullName joins first and last name, trimming the separator when one is missing
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UpdateProfile refreshes name fields from identity provider claims.
// Empty claims keep the stored value.
func (u *User) UpdateProfile(givenName, familyName string) {
	if v := strings.TrimSpace(givenName); v != "" {
		u.FirstName = v
	}
	if v := strings.TrimSpace(familyName); v != "" {
		u.LastName = v
	}
}

// RecordLogin stamps the last login time
func (u *User) RecordLogin() {
	now := time.Now()
	u.LastLogin = &now
}

// Activate lets the user leave the waiting zone
func (u *User) Activate() {
	u.IsActive = true
}

// Deactivate parks the user in the waiting zone
func (u *User) Deactivate() {
	u.IsActive = false
}

// CheckPassword verifies a plain password against the stored hash
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
