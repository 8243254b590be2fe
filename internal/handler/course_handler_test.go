package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/moodle"
)

type courseServiceMock struct {
	calls     int
	page      models.Pagination
	hit       bool
	detailErr error
	token     string
	search    models.SearchQuery
	limit     int
}

func (m *courseServiceMock) ListPublic(ctx context.Context, page models.Pagination) ([]moodle.Course, *models.Pagination, bool, error) {
	m.calls++
	m.page = page
	out := page
	out.Count = 3
	return []moodle.Course{{ID: 10, FullName: "Algebra"}}, &out, m.hit, nil
}

func (m *courseServiceMock) Detail(ctx context.Context, courseID int64) (*models.CourseDetail, error) {
	m.calls++
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return &models.CourseDetail{Course: moodle.Course{ID: courseID}, Contents: []moodle.Section{}}, nil
}

func (m *courseServiceMock) Photo(ctx context.Context, courseID int64, token string) (*models.CoursePhoto, error) {
	m.calls++
	m.token = token
	return &models.CoursePhoto{ContentType: "image/png", Body: []byte("png")}, nil
}

func (m *courseServiceMock) Sections(ctx context.Context, courseID int64) ([]moodle.Section, error) {
	m.calls++
	return []moodle.Section{{ID: 1, Name: "Week 1"}}, nil
}

func (m *courseServiceMock) Search(ctx context.Context, query models.SearchQuery) (*moodle.SearchResult, error) {
	m.calls++
	m.search = query
	return &moodle.SearchResult{Total: 1, Courses: []moodle.Course{{ID: 10}}}, nil
}

func (m *courseServiceMock) MyCourses(ctx context.Context, token string) (*models.MyCourses, error) {
	m.calls++
	m.token = token
	return &models.MyCourses{User: models.SessionUser{ID: 42}, Courses: []moodle.Course{}}, nil
}

func (m *courseServiceMock) Recent(ctx context.Context, token string, limit int) ([]moodle.RecentItem, error) {
	m.calls++
	m.token, m.limit = token, limit
	return []moodle.RecentItem{}, nil
}

func (m *courseServiceMock) Grades(ctx context.Context, courseID int64, token string) (*models.GradeReport, error) {
	m.calls++
	m.token = token
	return &models.GradeReport{CourseID: courseID, UserID: 42, Items: []moodle.GradeItem{}}, nil
}

type gradeRendererMock struct {
	format models.ReportFormat
}

func (m *gradeRendererMock) RenderGrades(report *models.GradeReport, format models.ReportFormat) (*models.RenderedReport, error) {
	m.format = format
	return &models.RenderedReport{FileName: "grades.csv", ContentType: "text/csv; charset=utf-8", Body: []byte("Item\n")}, nil
}

func TestCourseHandlerRejectsInvalidIDsBeforeUpstream(t *testing.T) {
	svc := &courseServiceMock{}
	enrollments := &enrollmentServiceMock{}
	h := NewCourseHandler(svc, &gradeRendererMock{})
	eh := NewEnrollmentHandler(enrollments)

	handlers := map[string]gin.HandlerFunc{
		"detail":   h.Detail,
		"photo":    h.Photo,
		"sections": h.Sections,
		"grades":   h.Grades,
		"status":   eh.Status,
		"enroll":   eh.Enroll,
	}
	for name, handle := range handlers {
		for _, raw := range []string{"abc", "-5", "0", "2.5"} {
			c, w := newTestContext(http.MethodGet, "/courses/"+raw, nil)
			c.Params = gin.Params{{Key: "courseId", Value: raw}}
			withSession(c, "ada", "token")

			handle(c)

			assert.Equal(t, http.StatusBadRequest, w.Code, name+" "+raw)
			assert.Equal(t, "invalid course id", decodeError(t, w).Message, name+" "+raw)
		}
	}
	assert.Zero(t, svc.calls)
	assert.Zero(t, enrollments.calls)
}

func TestCourseHandlerList(t *testing.T) {
	svc := &courseServiceMock{hit: true}
	c, w := newTestContext(http.MethodGet, "/courses?limit=500&offset=2", nil)
	middleware.WithResponseMeta()(c)

	NewCourseHandler(svc, nil).List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.Pagination{Offset: 2, Limit: 200}, svc.page)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	var courses []moodle.Course
	env := decodeEnvelope(t, w, &courses)
	require.Len(t, courses, 1)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 3, env.Pagination.Count)
	assert.Equal(t, true, env.Meta["cache_hit"])
}

func TestCourseHandlerDetail(t *testing.T) {
	svc := &courseServiceMock{}
	c, w := newTestContext(http.MethodGet, "/courses/10", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "10"}}

	NewCourseHandler(svc, nil).Detail(c)

	require.Equal(t, http.StatusOK, w.Code)
	var detail models.CourseDetail
	decodeEnvelope(t, w, &detail)
	assert.Equal(t, int64(10), detail.Course.ID)
	assert.NotNil(t, detail.Contents)
}

func TestCourseHandlerDetailMapsErrors(t *testing.T) {
	svc := &courseServiceMock{detailErr: appErrors.Clone(appErrors.ErrNotFound, "course not found")}
	c, w := newTestContext(http.MethodGet, "/courses/99", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "99"}}

	NewCourseHandler(svc, nil).Detail(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "course not found", decodeError(t, w).Message)
}

func TestCourseHandlerPhoto(t *testing.T) {
	svc := &courseServiceMock{}
	c, w := newTestContext(http.MethodGet, "/courses/10/photo", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "10"}}
	withSession(c, "ada", "session-token")

	NewCourseHandler(svc, nil).Photo(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png", w.Body.String())
	assert.Equal(t, "session-token", svc.token)
}

func TestCourseHandlerSearch(t *testing.T) {
	svc := &courseServiceMock{}
	c, w := newTestContext(http.MethodGet, "/courses/search?q=math&page=-1&perpage=1000", nil)

	NewCourseHandler(svc, nil).Search(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SearchQuery{Term: "math", Page: 0, PerPage: 20}, svc.search)
}

func TestCourseHandlerSignedInViewsRequireToken(t *testing.T) {
	svc := &courseServiceMock{}
	h := NewCourseHandler(svc, nil)

	for name, handle := range map[string]gin.HandlerFunc{"mine": h.Mine, "recent": h.Recent} {
		c, w := newTestContext(http.MethodGet, "/courses/"+name, nil)
		handle(c)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
	}
	assert.Zero(t, svc.calls)

	c, w := newTestContext(http.MethodGet, "/courses/recent?limit=500", nil)
	withSession(c, "ada", "session-token")
	h.Recent(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultRecentLimit, svc.limit)

	c, w = newTestContext(http.MethodGet, "/courses/me", nil)
	withSession(c, "ada", "session-token")
	h.Mine(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "session-token", svc.token)
}

func TestCourseHandlerGrades(t *testing.T) {
	svc := &courseServiceMock{}
	renderer := &gradeRendererMock{}
	h := NewCourseHandler(svc, renderer)

	c, w := newTestContext(http.MethodGet, "/courses/10/grades", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "10"}}
	withSession(c, "ada", "session-token")
	h.Grades(c)
	require.Equal(t, http.StatusOK, w.Code)
	var report models.GradeReport
	decodeEnvelope(t, w, &report)
	assert.Equal(t, int64(42), report.UserID)
	assert.Empty(t, renderer.format)

	c, w = newTestContext(http.MethodGet, "/courses/10/grades?format=csv", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "10"}}
	withSession(c, "ada", "session-token")
	h.Grades(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReportFormatCSV, renderer.format)
	assert.Equal(t, `attachment; filename="grades.csv"`, w.Header().Get("Content-Disposition"))

	c, w = newTestContext(http.MethodGet, "/courses/10/grades?format=xlsx", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "10"}}
	withSession(c, "ada", "session-token")
	before := svc.calls
	h.Grades(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, before, svc.calls)
}
