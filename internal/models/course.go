package models

import "github.com/noah-isme/campus-portal-api/pkg/moodle"

// CategoryRef is the short category form embedded in course details.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CourseDetail aggregates a course with its photo, category and contents.
type CourseDetail struct {
	Course   moodle.Course    `json:"course"`
	PhotoURL string           `json:"photoUrl"`
	Category *CategoryRef     `json:"category"`
	Contents []moodle.Section `json:"contents"`
}

// CategoryDetail is a category with its direct children and public courses.
type CategoryDetail struct {
	Category      moodle.Category   `json:"category"`
	Subcategories []moodle.Category `json:"subcategories"`
	Courses       []moodle.Course   `json:"courses"`
}

// CoursePhoto is a downloaded overview image.
type CoursePhoto struct {
	ContentType string
	Body        []byte
}

// EnrollmentRequest identifies who enrolls where.
type EnrollmentRequest struct {
	Identifier string
	CourseID   int64
	IP         string
	UserAgent  string
}

// EnrollmentStatus is the outcome of an enrollment check or request.
type EnrollmentStatus struct {
	Enrolled bool   `json:"enrolled"`
	Message  string `json:"message"`
}

// Enrollment messages.
const (
	MessageAlreadyEnrolled = "You are already enrolled."
	MessageNotEnrolled     = "You are not enrolled in this course."
	MessageEnrolled        = "Enrollment confirmed."
)

// SearchQuery is a paged course search.
type SearchQuery struct {
	Term    string
	Page    int
	PerPage int
}

// ReportFormat enumerates grade report encodings.
type ReportFormat string

const (
	ReportFormatJSON ReportFormat = "json"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
)

// GradeReport is the grade report of the signed-in user in one course.
type GradeReport struct {
	CourseID     int64              `json:"courseId"`
	UserID       int64              `json:"userId"`
	UserFullName string             `json:"userFullName"`
	Items        []moodle.GradeItem `json:"items"`
}

// RenderedReport is an encoded grade report ready for download.
type RenderedReport struct {
	FileName    string
	ContentType string
	Body        []byte
}
