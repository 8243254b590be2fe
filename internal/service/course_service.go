package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/moodle"
)

const defaultPhotoContentType = "image/jpeg"

// CourseService serves the course catalog and the signed-in user's course
// data from the LMS.
type CourseService struct {
	lms    *moodle.Factory
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewCourseService constructs a CourseService. cache may be nil.
func NewCourseService(lms *moodle.Factory, cache *CacheService, ttl time.Duration, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{lms: lms, cache: cache, ttl: ttl, logger: logger}
}

// publicCourses returns every public course, from cache when possible.
func (s *CourseService) publicCourses(ctx context.Context) ([]moodle.Course, bool, error) {
	var courses []moodle.Course
	if s.cache.Get(ctx, cacheKeyPublicCourses, &courses) {
		return courses, true, nil
	}
	courses, err := s.lms.Service().GetPublicCourses(ctx)
	if err != nil {
		return nil, false, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if courses == nil {
		courses = []moodle.Course{}
	}
	s.cache.Set(ctx, cacheKeyPublicCourses, courses, s.ttl)
	return courses, false, nil
}

// ListPublic returns one page of public courses. The returned pagination
// counts the full list.
func (s *CourseService) ListPublic(ctx context.Context, page models.Pagination) ([]moodle.Course, *models.Pagination, bool, error) {
	courses, hit, err := s.publicCourses(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	page.Count = len(courses)
	start, end := page.Window(len(courses))
	return courses[start:end], &page, hit, nil
}

// Detail aggregates a course with its photo URL, category and contents.
// Category and contents are fetched concurrently once the course is known.
func (s *CourseService) Detail(ctx context.Context, courseID int64) (*models.CourseDetail, error) {
	client := s.lms.Service()
	course, err := client.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if course == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	detail := &models.CourseDetail{Course: *course}
	g, gctx := errgroup.WithContext(ctx)
	if course.CategoryID > 0 {
		g.Go(func() error {
			category, err := client.GetCategoryByID(gctx, course.CategoryID)
			if err != nil {
				return err
			}
			if category != nil {
				detail.Category = &models.CategoryRef{ID: category.ID, Name: category.Name}
			}
			return nil
		})
	}
	g.Go(func() error {
		photo, err := client.GetCoursePhoto(gctx, courseID, course)
		detail.PhotoURL = photo
		return err
	})
	g.Go(func() error {
		contents, err := client.GetCourseContents(gctx, courseID)
		detail.Contents = contents
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if detail.Contents == nil {
		detail.Contents = []moodle.Section{}
	}
	return detail, nil
}

// Photo downloads the first overview image of a course. token selects the
// LMS token used for the download; empty means the service token.
func (s *CourseService) Photo(ctx context.Context, courseID int64, token string) (*models.CoursePhoto, error) {
	client := s.lms.Service()
	if strings.TrimSpace(token) != "" {
		userClient, err := s.lms.ForUser(token)
		if err == nil {
			client = userClient
		}
	}

	photoURL, err := client.GetCoursePhoto(ctx, courseID, nil)
	if err != nil {
		return nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if photoURL == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course photo not found")
	}

	body, contentType, err := client.FetchFile(ctx, photoURL)
	if err != nil {
		return nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if contentType == "" {
		contentType = defaultPhotoContentType
	}
	return &models.CoursePhoto{ContentType: contentType, Body: body}, nil
}

// Sections lists the sections of a course.
func (s *CourseService) Sections(ctx context.Context, courseID int64) ([]moodle.Section, error) {
	sections, err := s.lms.Service().GetCourseSections(ctx, courseID)
	if err != nil {
		return nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if sections == nil {
		sections = []moodle.Section{}
	}
	return sections, nil
}

// Search runs a full-text course search.
func (s *CourseService) Search(ctx context.Context, query models.SearchQuery) (*moodle.SearchResult, error) {
	query.Term = strings.TrimSpace(query.Term)
	if query.Term == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "search term is required")
	}
	result, err := s.lms.Service().SearchCourses(ctx, query.Term, query.Page, query.PerPage)
	if err != nil {
		return nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	return result, nil
}

// userContext resolves the account behind a user token.
func (s *CourseService) userContext(ctx context.Context, token string) (*moodle.Client, *moodle.SiteInfo, error) {
	client, err := s.lms.ForUser(token)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "not authenticated")
	}
	info, err := client.GetSiteInfo(ctx)
	if err != nil {
		return nil, nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if info.UserID <= 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrUpstream, "unable to determine LMS user id")
	}
	return client, info, nil
}

// MyCourses lists the courses of the account behind token.
func (s *CourseService) MyCourses(ctx context.Context, token string) (*models.MyCourses, error) {
	client, info, err := s.userContext(ctx, token)
	if err != nil {
		return nil, err
	}
	courses, err := client.GetUserCourses(ctx, info.UserID)
	if err != nil {
		return nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if courses == nil {
		courses = []moodle.Course{}
	}
	return &models.MyCourses{
		User:    models.SessionUser{ID: info.UserID, Username: info.Username, FullName: info.DisplayName()},
		Courses: courses,
	}, nil
}

// Recent lists the activities the account behind token accessed last.
func (s *CourseService) Recent(ctx context.Context, token string, limit int) ([]moodle.RecentItem, error) {
	client, info, err := s.userContext(ctx, token)
	if err != nil {
		return nil, err
	}
	items, err := client.GetRecentItems(ctx, info.UserID, limit)
	if err != nil {
		return nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if items == nil {
		items = []moodle.RecentItem{}
	}
	return items, nil
}

// Grades returns the grade report of the account behind token in a course.
func (s *CourseService) Grades(ctx context.Context, courseID int64, token string) (*models.GradeReport, error) {
	client, info, err := s.userContext(ctx, token)
	if err != nil {
		return nil, err
	}
	grades, err := client.GetUserGrades(ctx, courseID, info.UserID)
	if err != nil {
		return nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}

	report := &models.GradeReport{CourseID: courseID, UserID: info.UserID, UserFullName: info.DisplayName(), Items: []moodle.GradeItem{}}
	for _, g := range grades {
		if g.UserID != 0 && g.UserID != info.UserID {
			continue
		}
		if g.UserFullName != "" {
			report.UserFullName = g.UserFullName
		}
		report.Items = append(report.Items, g.GradeItems...)
	}
	s.logger.Debug("grade report loaded",
		zap.Int64("course_id", courseID),
		zap.Int64("user_id", info.UserID),
		zap.Int("items", len(report.Items)),
	)
	return report, nil
}
