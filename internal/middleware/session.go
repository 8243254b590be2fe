package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the parsed session.
const ContextSessionKey = "currentSession"

// SessionParser verifies a session cookie value.
type SessionParser interface {
	Parse(raw string) (*models.Session, error)
}

// Session attaches the session carried by cookieName when it verifies. Missing
// or invalid cookies never block the request.
func Session(parser SessionParser, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(cookieName)
		if err != nil || raw == "" {
			c.Next()
			return
		}
		session, err := parser.Parse(raw)
		if err != nil {
			c.Next()
			return
		}
		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

// RequireSession rejects requests that carry no verified session.
func RequireSession(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFromContext(c) == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, message))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SessionFromContext returns the session attached by Session, or nil.
func SessionFromContext(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return session
}
