package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, openID string) (json.RawMessage, error)
	Save(ctx context.Context, req models.SaveProfileRequest) (json.RawMessage, error)
}

// ProfileHandler stores front-end profile documents.
type ProfileHandler struct {
	profiles profileService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles profileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get godoc
// @Summary Load a stored profile
// @Tags Authentication
// @Produce json
// @Param openId query string true "Front-end user id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	openID := strings.TrimSpace(c.Query("openId"))
	if openID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "openId is required"))
		return
	}
	profile, err := h.profiles.Get(c.Request.Context(), openID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"profile": profile}, nil)
}

// Save godoc
// @Summary Store a profile
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SaveProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/profile [post]
func (h *ProfileHandler) Save(c *gin.Context) {
	var req models.SaveProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}
	profile, err := h.profiles.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"profile": profile}, nil)
}
