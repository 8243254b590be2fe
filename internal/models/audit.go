package models

import "time"

// Enrollment audit outcomes.
const (
	EnrollmentOutcomeEnrolled        = "ENROLLED"
	EnrollmentOutcomeAlreadyEnrolled = "ALREADY_ENROLLED"
)

// EnrollmentAudit records one enrollment request against the LMS.
type EnrollmentAudit struct {
	ID         string    `db:"id" json:"id"`
	Identifier string    `db:"identifier" json:"identifier"`
	LMSUserID  int64     `db:"lms_user_id" json:"lms_user_id"`
	CourseID   int64     `db:"course_id" json:"course_id"`
	Outcome    string    `db:"outcome" json:"outcome"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
