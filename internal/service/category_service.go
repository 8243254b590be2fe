package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/moodle"
)

// CategoryService serves the course category tree.
type CategoryService struct {
	lms     *moodle.Factory
	courses *CourseService
	cache   *CacheService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCategoryService constructs a CategoryService. Public courses are read
// through courses so both services share one cache entry.
func NewCategoryService(lms *moodle.Factory, courses *CourseService, cache *CacheService, ttl time.Duration, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{lms: lms, courses: courses, cache: cache, ttl: ttl, logger: logger}
}

func (s *CategoryService) categories(ctx context.Context) ([]moodle.Category, bool, error) {
	var categories []moodle.Category
	if s.cache.Get(ctx, cacheKeyCategories, &categories) {
		return categories, true, nil
	}
	categories, err := s.lms.Service().GetCategories(ctx)
	if err != nil {
		return nil, false, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if categories == nil {
		categories = []moodle.Category{}
	}
	s.cache.Set(ctx, cacheKeyCategories, categories, s.ttl)
	return categories, false, nil
}

// List returns one page of categories. The returned pagination counts the
// full list.
func (s *CategoryService) List(ctx context.Context, page models.Pagination) ([]moodle.Category, *models.Pagination, bool, error) {
	categories, hit, err := s.categories(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	page.Count = len(categories)
	start, end := page.Window(len(categories))
	return categories[start:end], &page, hit, nil
}

// Detail returns a category with its direct children and its public courses.
func (s *CategoryService) Detail(ctx context.Context, categoryID int64) (*models.CategoryDetail, bool, error) {
	var cached models.CategoryDetail
	if s.cache.Get(ctx, cacheKeyCategory(categoryID), &cached) {
		return &cached, true, nil
	}

	category, err := s.lms.Service().GetCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, false, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if category == nil {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "category not found")
	}

	var (
		all     []moodle.Category
		courses []moodle.Course
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, _, err = s.categories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		courses, _, err = s.courses.publicCourses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	detail := &models.CategoryDetail{
		Category:      *category,
		Subcategories: []moodle.Category{},
		Courses:       []moodle.Course{},
	}
	for _, child := range all {
		if child.Parent == categoryID {
			detail.Subcategories = append(detail.Subcategories, child)
		}
	}
	for _, course := range courses {
		if course.CategoryID == categoryID {
			detail.Courses = append(detail.Courses, course)
		}
	}
	s.cache.Set(ctx, cacheKeyCategory(categoryID), detail, s.ttl)
	return detail, false, nil
}
