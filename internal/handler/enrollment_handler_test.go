package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type enrollmentServiceMock struct {
	calls    int
	last     models.EnrollmentRequest
	enrolled bool
	err      error
}

func (m *enrollmentServiceMock) Status(ctx context.Context, req models.EnrollmentRequest) (*models.EnrollmentStatus, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	if m.enrolled {
		return &models.EnrollmentStatus{Enrolled: true, Message: models.MessageAlreadyEnrolled}, nil
	}
	return &models.EnrollmentStatus{Enrolled: false, Message: models.MessageNotEnrolled}, nil
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, req models.EnrollmentRequest) (*models.EnrollmentStatus, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	if m.enrolled {
		return &models.EnrollmentStatus{Enrolled: true, Message: models.MessageAlreadyEnrolled}, nil
	}
	return &models.EnrollmentStatus{Enrolled: true, Message: models.MessageEnrolled}, nil
}

func TestEnrollmentHandlerRequiresSession(t *testing.T) {
	svc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(svc)

	for name, handle := range map[string]gin.HandlerFunc{"status": h.Status, "enroll": h.Enroll} {
		c, w := newTestContext(http.MethodPost, "/courses/10/enroll", nil)
		c.Params = gin.Params{{Key: "courseId", Value: "10"}}
		handle(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		assert.Equal(t, "sign in to enroll in courses", decodeError(t, w).Message, name)
	}
	assert.Zero(t, svc.calls)
}

func TestEnrollmentHandlerEnroll(t *testing.T) {
	svc := &enrollmentServiceMock{}
	c, w := newTestContext(http.MethodPost, "/courses/10/enroll", nil)
	c.Request.Header.Set("User-Agent", "portal-test")
	c.Params = gin.Params{{Key: "courseId", Value: "10"}}
	withSession(c, "ada@example.com", "token")

	NewEnrollmentHandler(svc).Enroll(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada@example.com", svc.last.Identifier)
	assert.Equal(t, int64(10), svc.last.CourseID)
	assert.Equal(t, "portal-test", svc.last.UserAgent)

	var status models.EnrollmentStatus
	decodeEnvelope(t, w, &status)
	assert.True(t, status.Enrolled)
	assert.Equal(t, models.MessageEnrolled, status.Message)
}

func TestEnrollmentHandlerStatus(t *testing.T) {
	svc := &enrollmentServiceMock{enrolled: true}
	c, w := newTestContext(http.MethodGet, "/courses/10/enrollment-status", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "10"}}
	withSession(c, "ada", "token")

	NewEnrollmentHandler(svc).Status(c)

	require.Equal(t, http.StatusOK, w.Code)
	var status models.EnrollmentStatus
	decodeEnvelope(t, w, &status)
	assert.Equal(t, models.MessageAlreadyEnrolled, status.Message)
}

func TestEnrollmentHandlerErrors(t *testing.T) {
	svc := &enrollmentServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "course not found")}
	c, w := newTestContext(http.MethodPost, "/courses/77/enroll", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "77"}}
	withSession(c, "ada", "token")

	NewEnrollmentHandler(svc).Enroll(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)
}
