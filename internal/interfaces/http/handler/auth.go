package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	appidentity "github.com/ifcvalidation/bff/internal/application/identity"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/ifcvalidation/bff/internal/infrastructure/logger"
	"github.com/ifcvalidation/bff/internal/infrastructure/session"
	"go.uber.org/zap"
)

// Authenticator runs the single sign-on round-trip
type Authenticator interface {
	BeginLogin(ctx context.Context) (*appidentity.LoginRedirect, error)
	CompleteLogin(ctx context.Context, code, state string) (*appidentity.LoginResult, error)
	LogoutURL() string
}

// SessionWriter stores and clears browser sessions
type SessionWriter interface {
	Save(w http.ResponseWriter, r *http.Request, data *session.Data) error
	Destroy(w http.ResponseWriter, r *http.Request) error
}

var (
	_ Authenticator = (*appidentity.AuthService)(nil)
	_ SessionWriter = (*session.Manager)(nil)
)

// AuthHandler handles the login, callback and logout redirects
type AuthHandler struct {
	BaseHandler
	auth     Authenticator
	sessions SessionWriter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth Authenticator, sessions SessionWriter) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
	}
}

// Login godoc
// @ID           login
// @Summary      Start single sign-on
// @Description  Redirects the browser to the identity provider
// @Tags         auth
// @Success      302
// @Failure      404 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /login [get]
func (h *AuthHandler) Login(c *gin.Context) {
	redirect, err := h.auth.BeginLogin(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, redirect.URL)
}

// Callback godoc
// @ID           loginCallback
// @Summary      Single sign-on callback
// @Description  Exchanges the authorization code, stores the session and redirects to the dashboard
// @Tags         auth
// @Param        code  query string true "Authorization code"
// @Param        state query string true "Signed login state"
// @Success      302
// @Failure      401 {object} ErrorResponse
// @Router       /callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	if providerErr := c.Query("error"); providerErr != "" {
		logger.L(ctx).Warn("Identity provider returned an error",
			zap.String("error", providerErr),
			zap.String("description", c.Query("error_description")),
		)
		h.HandleError(c, shared.ErrUnauthorized)
		return
	}

	result, err := h.auth.CompleteLogin(ctx, c.Query("code"), c.Query("state"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	user := result.User
	if err := h.sessions.Save(c.Writer, c.Request, &session.Data{User: &user}); err != nil {
		logger.L(ctx).Error("Failed to store session", zap.Error(err))
		h.InternalError(c, "Failed to store session")
		return
	}
	c.Redirect(http.StatusFound, result.Redirect)
}

// Logout godoc
// @ID           logout
// @Summary      Sign out
// @Description  Clears the session and redirects to the identity provider logout page
// @Tags         auth
// @Success      302
// @Router       /logout [get]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c.Writer, c.Request); err != nil {
		// the cookie is expired regardless; a stale server-side entry times out
		logger.L(c.Request.Context()).Warn("Failed to delete session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, h.auth.LogoutURL())
}
