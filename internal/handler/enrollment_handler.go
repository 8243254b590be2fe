package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type enrollmentService interface {
	Status(ctx context.Context, req models.EnrollmentRequest) (*models.EnrollmentStatus, error)
	Enroll(ctx context.Context, req models.EnrollmentRequest) (*models.EnrollmentStatus, error)
}

// EnrollmentHandler exposes self-enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// request validates the course id and the session before anything is sent
// upstream.
func (h *EnrollmentHandler) request(c *gin.Context) (models.EnrollmentRequest, bool) {
	courseID, err := parsePositiveID(c.Param("courseId"), "course id")
	if err != nil {
		response.Error(c, err)
		return models.EnrollmentRequest{}, false
	}
	identifier := sessionIdentifier(c)
	if identifier == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to enroll in courses"))
		return models.EnrollmentRequest{}, false
	}
	return models.EnrollmentRequest{
		Identifier: identifier,
		CourseID:   courseID,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}, true
}

// Status godoc
// @Summary Enrollment status
// @Description Reports whether the signed-in user is enrolled in a course without enrolling
// @Tags Enrollments
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{courseId}/enrollment-status [get]
func (h *EnrollmentHandler) Status(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}
	status, err := h.enrollments.Status(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Enrolls the signed-in user as a student unless already enrolled
// @Tags Enrollments
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /courses/{courseId}/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}
	status, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
