package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	appidentity "github.com/ifcvalidation/bff/internal/application/identity"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/ifcvalidation/bff/internal/infrastructure/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockAuthenticator is a mock implementation of Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) BeginLogin(ctx context.Context) (*appidentity.LoginRedirect, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.LoginRedirect), args.Error(1)
}

func (m *MockAuthenticator) CompleteLogin(ctx context.Context, code, state string) (*appidentity.LoginResult, error) {
	args := m.Called(ctx, code, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.LoginResult), args.Error(1)
}

func (m *MockAuthenticator) LogoutURL() string {
	return m.Called().String(0)
}

// MockSessionWriter is a mock implementation of SessionWriter
type MockSessionWriter struct {
	mock.Mock
}

func (m *MockSessionWriter) Save(w http.ResponseWriter, r *http.Request, data *session.Data) error {
	args := m.Called(w, r, data)
	return args.Error(0)
}

func (m *MockSessionWriter) Destroy(w http.ResponseWriter, r *http.Request) error {
	args := m.Called(w, r)
	return args.Error(0)
}

func setupAuthRouter(auth Authenticator, sessions SessionWriter) *gin.Engine {
	h := NewAuthHandler(auth, sessions)
	r := gin.New()
	r.GET("/login", h.Login)
	r.GET("/callback", h.Callback)
	r.GET("/logout", h.Logout)
	return r
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("redirects to the provider", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("BeginLogin", mock.Anything).Return(&appidentity.LoginRedirect{
			URL:   "https://idp.example.org/authorize?state=abc",
			State: "abc",
		}, nil)

		w := serve(setupAuthRouter(auth, new(MockSessionWriter)), httptest.NewRequest(http.MethodGet, "/login", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://idp.example.org/authorize?state=abc", w.Header().Get("Location"))
	})

	t.Run("sso disabled", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("BeginLogin", mock.Anything).Return(nil, shared.NewDomainError("SSO_DISABLED", "Single sign-on is not configured"))

		w := serve(setupAuthRouter(auth, new(MockSessionWriter)), httptest.NewRequest(http.MethodGet, "/login", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_SSO_DISABLED")
	})
}

func TestAuthHandler_Callback(t *testing.T) {
	t.Run("stores the session and redirects", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("CompleteLogin", mock.Anything, "the-code", "the-state").Return(&appidentity.LoginResult{
			User:     appidentity.SessionUser{Email: "jane@example.org", GivenName: "Jane"},
			Redirect: "https://validate.example.org/dashboard",
			Created:  true,
		}, nil)
		sessions := new(MockSessionWriter)
		sessions.On("Save", mock.Anything, mock.Anything, mock.MatchedBy(func(d *session.Data) bool {
			return d.User != nil && d.User.Email == "jane@example.org"
		})).Return(nil)

		w := serve(setupAuthRouter(auth, sessions),
			httptest.NewRequest(http.MethodGet, "/callback?code=the-code&state=the-state", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://validate.example.org/dashboard", w.Header().Get("Location"))
		sessions.AssertExpectations(t)
	})

	t.Run("invalid state", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("CompleteLogin", mock.Anything, "c", "forged").Return(nil, shared.ErrUnauthorized.Wrap(errors.New("bad signature")))
		sessions := new(MockSessionWriter)

		w := serve(setupAuthRouter(auth, sessions), httptest.NewRequest(http.MethodGet, "/callback?code=c&state=forged", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("provider error", func(t *testing.T) {
		auth := new(MockAuthenticator)

		w := serve(setupAuthRouter(auth, new(MockSessionWriter)),
			httptest.NewRequest(http.MethodGet, "/callback?error=access_denied&error_description=user+cancelled", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		auth.AssertNotCalled(t, "CompleteLogin", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("session store failure", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("CompleteLogin", mock.Anything, "c", "s").Return(&appidentity.LoginResult{
			User:     appidentity.SessionUser{Email: "jane@example.org"},
			Redirect: "/dashboard",
		}, nil)
		sessions := new(MockSessionWriter)
		sessions.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

		w := serve(setupAuthRouter(auth, sessions), httptest.NewRequest(http.MethodGet, "/callback?code=c&state=s", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("clears the session", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("LogoutURL").Return("https://idp.example.org/logout")
		sessions := new(MockSessionWriter)
		sessions.On("Destroy", mock.Anything, mock.Anything).Return(nil)

		w := serve(setupAuthRouter(auth, sessions), httptest.NewRequest(http.MethodGet, "/logout", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://idp.example.org/logout", w.Header().Get("Location"))
		sessions.AssertExpectations(t)
	})

	t.Run("store failure still redirects", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("LogoutURL").Return("https://validate.example.org")
		sessions := new(MockSessionWriter)
		sessions.On("Destroy", mock.Anything, mock.Anything).Return(errors.New("redis down"))

		w := serve(setupAuthRouter(auth, sessions), httptest.NewRequest(http.MethodGet, "/logout", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://validate.example.org", w.Header().Get("Location"))
	})
}
