package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/moodle"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 50
	photoCacheControl  = "public, max-age=3600"
)

type courseService interface {
	ListPublic(ctx context.Context, page models.Pagination) ([]moodle.Course, *models.Pagination, bool, error)
	Detail(ctx context.Context, courseID int64) (*models.CourseDetail, error)
	Photo(ctx context.Context, courseID int64, token string) (*models.CoursePhoto, error)
	Sections(ctx context.Context, courseID int64) ([]moodle.Section, error)
	Search(ctx context.Context, query models.SearchQuery) (*moodle.SearchResult, error)
	MyCourses(ctx context.Context, token string) (*models.MyCourses, error)
	Recent(ctx context.Context, token string, limit int) ([]moodle.RecentItem, error)
	Grades(ctx context.Context, courseID int64, token string) (*models.GradeReport, error)
}

type gradeRenderer interface {
	RenderGrades(report *models.GradeReport, format models.ReportFormat) (*models.RenderedReport, error)
}

// CourseHandler exposes the course catalog and the signed-in course views.
type CourseHandler struct {
	courses courseService
	export  gradeRenderer
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService, export gradeRenderer) *CourseHandler {
	return &CourseHandler{courses: courses, export: export}
}

func courseIDParam(c *gin.Context) (int64, bool) {
	id, err := parsePositiveID(c.Param("courseId"), "course id")
	if err != nil {
		response.Error(c, err)
		return 0, false
	}
	return id, true
}

// List godoc
// @Summary List public courses
// @Tags Courses
// @Produce json
// @Param limit query int false "Page size (1-200)" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, page, hit, err := h.courses.ListPublic(c.Request.Context(), pageFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, courses, page, middleware.ExtractMeta(c))
}

// Mine godoc
// @Summary Courses of the signed-in user
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /courses/me [get]
func (h *CourseHandler) Mine(c *gin.Context) {
	token := userToken(c, false)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "not authenticated"))
		return
	}
	mine, err := h.courses.MyCourses(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mine, nil)
}

// Search godoc
// @Summary Search courses
// @Tags Courses
// @Produce json
// @Param q query string true "Search term"
// @Param page query int false "Zero-based page"
// @Param perpage query int false "Results per page" default(20)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/search [get]
func (h *CourseHandler) Search(c *gin.Context) {
	query := models.SearchQuery{
		Term:    c.Query("q"),
		Page:    queryInt(c, "page", 0),
		PerPage: queryInt(c, "perpage", models.DefaultPageLimit),
	}
	if query.Page < 0 {
		query.Page = 0
	}
	if query.PerPage < 1 || query.PerPage > models.MaxPageLimit {
		query.PerPage = models.DefaultPageLimit
	}

	result, err := h.courses.Search(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Recent godoc
// @Summary Recently accessed items
// @Tags Courses
// @Produce json
// @Param limit query int false "Maximum items" default(10)
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /courses/recent [get]
func (h *CourseHandler) Recent(c *gin.Context) {
	token := userToken(c, false)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "not authenticated"))
		return
	}
	limit := queryInt(c, "limit", defaultRecentLimit)
	if limit < 1 || limit > maxRecentLimit {
		limit = defaultRecentLimit
	}
	items, err := h.courses.Recent(c.Request.Context(), token, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Detail godoc
// @Summary Course detail
// @Description Course with photo URL, category and section contents
// @Tags Courses
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /courses/{courseId} [get]
func (h *CourseHandler) Detail(c *gin.Context) {
	id, ok := courseIDParam(c)
	if !ok {
		return
	}
	detail, err := h.courses.Detail(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Photo godoc
// @Summary Course overview image
// @Tags Courses
// @Produce image/jpeg
// @Param courseId path int true "Course ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /courses/{courseId}/photo [get]
func (h *CourseHandler) Photo(c *gin.Context) {
	id, ok := courseIDParam(c)
	if !ok {
		return
	}
	photo, err := h.courses.Photo(c.Request.Context(), id, userToken(c, false))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Binary(c, http.StatusOK, photo.ContentType, "", photo.Body, photoCacheControl)
}

// Sections godoc
// @Summary Course sections
// @Tags Courses
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/{courseId}/sections [get]
func (h *CourseHandler) Sections(c *gin.Context) {
	id, ok := courseIDParam(c)
	if !ok {
		return
	}
	sections, err := h.courses.Sections(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// Grades godoc
// @Summary Grade report of the signed-in user
// @Tags Courses
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param courseId path int true "Course ID"
// @Param format query string false "json, csv or pdf" default(json)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /courses/{courseId}/grades [get]
func (h *CourseHandler) Grades(c *gin.Context) {
	id, ok := courseIDParam(c)
	if !ok {
		return
	}
	format, err := service.ParseReportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	token := userToken(c, false)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "not authenticated"))
		return
	}

	report, err := h.courses.Grades(c.Request.Context(), id, token)
	if err != nil {
		response.Error(c, err)
		return
	}
	if format == models.ReportFormatJSON {
		response.JSON(c, http.StatusOK, report, nil)
		return
	}

	rendered, err := h.export.RenderGrades(report, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Binary(c, http.StatusOK, rendered.ContentType, rendered.FileName, rendered.Body, "no-store")
}
