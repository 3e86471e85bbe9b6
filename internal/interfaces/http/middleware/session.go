package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	appidentity "github.com/ifcvalidation/bff/internal/application/identity"
	"github.com/ifcvalidation/bff/internal/domain/identity"
	"github.com/ifcvalidation/bff/internal/infrastructure/logger"
	"github.com/ifcvalidation/bff/internal/infrastructure/session"
	"github.com/ifcvalidation/bff/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Context keys set by CurrentUser
const (
	CurrentUserKey = "current_user"
	SessionDataKey = "session_data"
)

// SessionLoader reads the browser session of a request
type SessionLoader interface {
	Load(r *http.Request) (string, *session.Data, error)
}

// UserResolver maps the session onto an account
type UserResolver interface {
	Resolve(ctx context.Context, sessionUser *appidentity.SessionUser) (*identity.User, error)
}

var (
	_ SessionLoader = (*session.Manager)(nil)
	_ UserResolver  = (*appidentity.CurrentUserResolver)(nil)
)

// CurrentUser loads the session and resolves the current user. Requests
// without a usable session continue anonymously; handlers decide whether
// that means a login redirect. A broken session store is a server error.
func CurrentUser(sessions SessionLoader, resolver UserResolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, data, err := sessions.Load(c.Request)
		if err != nil {
			log.Error("Failed to load session", zap.String("request_id", GetRequestID(c)), zap.Error(err))
			abortInternal(c)
			return
		}
		if data == nil {
			data = &session.Data{}
		}
		c.Set(SessionDataKey, data)

		user, err := resolver.Resolve(c.Request.Context(), data.User)
		if err != nil {
			log.Error("Failed to resolve current user", zap.String("request_id", GetRequestID(c)), zap.Error(err))
			abortInternal(c)
			return
		}
		if user != nil {
			c.Set(CurrentUserKey, user)
			ctx, _ := logger.WithUserID(c.Request.Context(), logger.FromContext(c.Request.Context()), user.ID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

// RequireUser aborts with 401 when no user was resolved. The legacy routes
// answer with a login redirect instead; this guards the auxiliary ones.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetCurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized,
				"Authentication required",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}

// GetCurrentUser returns the user resolved by CurrentUser, or nil
func GetCurrentUser(c *gin.Context) *identity.User {
	if v, ok := c.Get(CurrentUserKey); ok {
		if u, ok := v.(*identity.User); ok {
			return u
		}
	}
	return nil
}

// GetSessionData returns the session loaded by CurrentUser, never nil
func GetSessionData(c *gin.Context) *session.Data {
	if v, ok := c.Get(SessionDataKey); ok {
		if d, ok := v.(*session.Data); ok && d != nil {
			return d
		}
	}
	return &session.Data{}
}

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		GetRequestID(c),
	))
}
