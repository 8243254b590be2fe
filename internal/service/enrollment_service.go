package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/moodle"
)

type enrollmentAuditRepository interface {
	Create(ctx context.Context, audit *models.EnrollmentAudit) error
}

// EnrollmentService checks and performs course enrollments for the signed-in
// user. The check and the enrollment are separate LMS calls, so two
// concurrent requests may both enroll.
type EnrollmentService struct {
	lms     *moodle.Factory
	audit   enrollmentAuditRepository
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService. audit and metrics may be nil.
func NewEnrollmentService(lms *moodle.Factory, audit enrollmentAuditRepository, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{lms: lms, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// resolve loads the course and the session user and reports whether the user
// is already enrolled.
func (s *EnrollmentService) resolve(ctx context.Context, req models.EnrollmentRequest) (*moodle.User, bool, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		return nil, false, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to enroll in courses")
	}
	client := s.lms.Service()

	course, err := client.GetCourseByID(ctx, req.CourseID)
	if err != nil {
		return nil, false, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if course == nil {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	user, err := client.GetUserByField(ctx, identifierField(identifier), identifier)
	if err != nil {
		return nil, false, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if user == nil {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "authenticated profile could not be resolved")
	}

	enrolled, err := client.IsEnrolled(ctx, user.ID, req.CourseID)
	if err != nil {
		return nil, false, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	return user, enrolled, nil
}

// Status reports whether the session user is enrolled without enrolling.
func (s *EnrollmentService) Status(ctx context.Context, req models.EnrollmentRequest) (*models.EnrollmentStatus, error) {
	_, enrolled, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return &models.EnrollmentStatus{Enrolled: true, Message: models.MessageAlreadyEnrolled}, nil
	}
	return &models.EnrollmentStatus{Enrolled: false, Message: models.MessageNotEnrolled}, nil
}

// Enroll enrolls the session user unless they already are.
func (s *EnrollmentService) Enroll(ctx context.Context, req models.EnrollmentRequest) (*models.EnrollmentStatus, error) {
	user, enrolled, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if enrolled {
		s.record(ctx, req, user, models.EnrollmentOutcomeAlreadyEnrolled)
		return &models.EnrollmentStatus{Enrolled: true, Message: models.MessageAlreadyEnrolled}, nil
	}

	if err := s.lms.Service().EnrollUserInCourse(ctx, user.ID, req.CourseID); err != nil {
		s.metrics.RecordEnrollment("failed")
		return nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	s.record(ctx, req, user, models.EnrollmentOutcomeEnrolled)
	s.logger.Info("course enrollment confirmed",
		zap.Int64("course_id", req.CourseID),
		zap.Int64("lms_user_id", user.ID),
	)
	return &models.EnrollmentStatus{Enrolled: true, Message: models.MessageEnrolled}, nil
}

func (s *EnrollmentService) record(ctx context.Context, req models.EnrollmentRequest, user *moodle.User, outcome string) {
	s.metrics.RecordEnrollment(strings.ToLower(outcome))
	if s.audit == nil {
		return
	}
	entry := &models.EnrollmentAudit{
		Identifier: strings.TrimSpace(req.Identifier),
		LMSUserID:  user.ID,
		CourseID:   req.CourseID,
		Outcome:    outcome,
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to write enrollment audit", zap.Int64("course_id", req.CourseID), zap.Error(err))
	}
}
