package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/moodle"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error)
	Me(ctx context.Context, identifier, token string) (*moodle.User, error)
	LookupUser(ctx context.Context, query models.UserLookupQuery) (*models.UserLookupResult, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	cookie  CookieConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{service: svc, cookie: cookie}
}

// Login godoc
// @Summary Sign in with LMS credentials
// @Description Exchanges username or email and password for an LMS token and sets the session cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "username/email and password are required"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.cookie.set(c, res.Session)
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Sign out
// @Description Clears the session cookie and redirects to a relative path
// @Tags Authentication
// @Param redirect query string false "Relative path to redirect to" default(/)
// @Success 303
// @Router /auth/logout [get]
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.cookie.clear(c)
	c.Redirect(http.StatusSeeOther, safeRedirect(c.Query("redirect")))
}

// Me godoc
// @Summary Current LMS user
// @Description Resolves the LMS account behind the session or the moodleToken query value
// @Tags Authentication
// @Produce json
// @Param moodleToken query string false "LMS user token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identifier := sessionIdentifier(c)
	token := userToken(c, true)
	if token == "" && identifier == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "not authenticated"))
		return
	}

	user, err := h.service.Me(c.Request.Context(), identifier, token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"user": user}, nil)
}

// User godoc
// @Summary Look up an LMS user
// @Description Finds a user by username, email or id, or by an explicit field and value
// @Tags Authentication
// @Produce json
// @Param username query string false "Username"
// @Param email query string false "Email"
// @Param id query string false "User id"
// @Param field query string false "Lookup field (username, email or id)"
// @Param value query string false "Lookup value"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /auth/user [get]
func (h *AuthHandler) User(c *gin.Context) {
	query, ok := userLookupFromQuery(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "query must include username, email or id (or provide field and value)"))
		return
	}

	res, err := h.service.LookupUser(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

func userLookupFromQuery(c *gin.Context) (models.UserLookupQuery, bool) {
	for _, field := range []moodle.UserField{moodle.UserFieldUsername, moodle.UserFieldEmail, moodle.UserFieldID} {
		if value, present := c.GetQuery(string(field)); present {
			return models.UserLookupQuery{Field: field, Value: value}, strings.TrimSpace(value) != ""
		}
	}
	field := moodle.UserField(c.Query("field"))
	value := c.Query("value")
	if !field.Valid() || strings.TrimSpace(value) == "" {
		return models.UserLookupQuery{}, false
	}
	return models.UserLookupQuery{Field: field, Value: value}, true
}

// Register godoc
// @Summary Register an LMS account
// @Description Creates a manual-auth LMS account, signs it in and sets the session cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.cookie.set(c, res.Session)
	response.Created(c, res)
}
