// Package session keeps browser sessions server-side, keyed by an opaque
// cookie value.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	appidentity "github.com/ifcvalidation/bff/internal/application/identity"
	"github.com/ifcvalidation/bff/internal/infrastructure/config"
)

// ErrNotFound is returned by stores for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// Data is the content of a session
type Data struct {
	User *appidentity.SessionUser `json:"user,omitempty"`
}

// Store persists session data
type Store interface {
	Load(ctx context.Context, id string) (*Data, error)
	Save(ctx context.Context, id string, data *Data, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Manager ties a Store to the session cookie
type Manager struct {
	store    Store
	name     string
	domain   string
	path     string
	ttl      time.Duration
	secure   bool
	sameSite http.SameSite
}

// NewManager creates a session manager from configuration
func NewManager(store Store, cfg config.SessionConfig) *Manager {
	m := &Manager{
		store:    store,
		name:     cfg.CookieName,
		domain:   cfg.Domain,
		path:     cfg.Path,
		ttl:      cfg.TTL,
		secure:   cfg.Secure,
		sameSite: parseSameSite(cfg.SameSite),
	}
	if m.name == "" {
		m.name = "sessionid"
	}
	if m.path == "" {
		m.path = "/"
	}
	if m.ttl <= 0 {
		m.ttl = 14 * 24 * time.Hour
	}
	return m
}

// CookieName returns the name of the session cookie
func (m *Manager) CookieName() string {
	return m.name
}

// Load returns the session id and data of the request. Requests without a
// valid session get an empty id and empty data.
func (m *Manager) Load(r *http.Request) (string, *Data, error) {
	c, err := r.Cookie(m.name)
	if err != nil || c.Value == "" {
		return "", &Data{}, nil
	}
	data, err := m.store.Load(r.Context(), c.Value)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", &Data{}, nil
		}
		return "", &Data{}, err
	}
	return c.Value, data, nil
}

// Save stores data under a fresh session id and sets the cookie. The
// previous session, if any, is discarded so a login never reuses an id.
func (m *Manager) Save(w http.ResponseWriter, r *http.Request, data *Data) error {
	if c, err := r.Cookie(m.name); err == nil && c.Value != "" {
		_ = m.store.Delete(r.Context(), c.Value)
	}

	id := uuid.NewString()
	if err := m.store.Save(r.Context(), id, data, m.ttl); err != nil {
		return err
	}
	http.SetCookie(w, m.cookie(id, int(m.ttl.Seconds())))
	return nil
}

// Destroy removes the session and expires the cookie
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	var err error
	if c, cookieErr := r.Cookie(m.name); cookieErr == nil && c.Value != "" {
		err = m.store.Delete(r.Context(), c.Value)
	}
	http.SetCookie(w, m.cookie("", -1))
	return err
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     m.path,
		Domain:   m.domain,
		MaxAge:   maxAge,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: m.sameSite,
	}
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
