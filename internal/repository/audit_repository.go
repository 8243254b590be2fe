package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// AuditRepository writes enrollment audit entries.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts audit, assigning an id and timestamp when missing.
func (r *AuditRepository) Create(ctx context.Context, audit *models.EnrollmentAudit) error {
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollment_audit (id, identifier, lms_user_id, course_id, outcome, ip_address, user_agent, created_at)
VALUES (:id, :identifier, :lms_user_id, :course_id, :outcome, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, audit); err != nil {
		return fmt.Errorf("insert enrollment audit: %w", err)
	}
	return nil
}

