package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

func (cfg CookieConfig) set(c *gin.Context, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.Name, value, int(cfg.MaxAge.Seconds()), "/", "", cfg.Secure, true)
}

func (cfg CookieConfig) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.Name, "", -1, "/", "", cfg.Secure, true)
}

func sessionFromContext(c *gin.Context) *models.Session {
	return middleware.SessionFromContext(c)
}

// sessionIdentifier returns the identifier of the current session, or "".
func sessionIdentifier(c *gin.Context) string {
	if session := sessionFromContext(c); session != nil {
		return session.Identifier
	}
	return ""
}

// userToken picks the LMS user token for the request. With preferQuery the
// moodleToken query value wins over the session.
func userToken(c *gin.Context, preferQuery bool) string {
	query := strings.TrimSpace(c.Query("moodleToken"))
	var session string
	if s := sessionFromContext(c); s != nil {
		session = s.Token
	}
	if preferQuery && query != "" {
		return query
	}
	if session != "" {
		return session
	}
	return query
}

// safeRedirect keeps same-origin relative paths and falls back to "/".
func safeRedirect(target string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
