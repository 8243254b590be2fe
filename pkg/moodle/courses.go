package moodle

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Web-service function names consumed by this package.
const (
	FnGetCourses        = "core_course_get_courses"
	FnGetCoursesByField = "core_course_get_courses_by_field"
	FnGetCategories     = "core_course_get_categories"
	FnGetContents       = "core_course_get_contents"
	FnGetSections       = "core_course_get_sections"
	FnSearchCourses     = "core_course_search_courses"
	FnGetUsersCourses   = "core_enrol_get_users_courses"
	FnGetUsersByField   = "core_user_get_users_by_field"
	FnCreateUsers       = "core_user_create_users"
	FnManualEnrolUsers  = "enrol_manual_enrol_users"
	FnGetGradeItems     = "gradereport_user_get_grade_items"
	FnGetRecentItems    = "block_recentlyaccesseditems_get_recent_items"
	FnGetSiteInfo       = "core_webservice_get_site_info"
)

const (
	detailFetchConcurrency  = 8
	defaultSearchPerPage    = 20
	defaultRecentItemsLimit = 10
)

// Members under which list payloads may be wrapped.
const (
	courseListWrapKey   = "courses"
	categoryListWrapKey = "categories"
	sectionListWrapKey  = "sections"
	gradesListWrapKey   = "usergrades"
	recentListWrapKey   = "items"
	userListWrapKey     = "users"
)

// GetCourseByID resolves one course through core_course_get_courses_by_field,
// which also returns overview files. Returns nil when the course is unknown.
func (c *Client) GetCourseByID(ctx context.Context, courseID int64) (*Course, error) {
	courses, err := c.getCoursesByField(ctx, "id", strconv.FormatInt(courseID, 10))
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, nil
	}
	return &courses[0], nil
}

// GetCoursesByIDs resolves courses through core_course_get_courses.
func (c *Client) GetCoursesByIDs(ctx context.Context, ids ...int64) ([]Course, error) {
	params := Params{}
	if len(ids) > 0 {
		params["options"] = Params{"ids": ids}
	}
	payload, err := c.call(ctx, FnGetCourses, params)
	if err != nil {
		return nil, err
	}
	return decodeList[Course](payload, courseListWrapKey)
}

// GetCoursesByCategory lists the courses of one category with a tokenized
// CourseImage.
func (c *Client) GetCoursesByCategory(ctx context.Context, categoryID int64) ([]Course, error) {
	courses, err := c.getCoursesByField(ctx, "category", strconv.FormatInt(categoryID, 10))
	if err != nil {
		return nil, err
	}
	for i := range courses {
		courses[i].CourseImage = c.overviewImage(courses[i])
	}
	return courses, nil
}

func (c *Client) getCoursesByField(ctx context.Context, field, value string) ([]Course, error) {
	payload, err := c.call(ctx, FnGetCoursesByField, Params{"field": field, "value": value})
	if err != nil {
		return nil, err
	}
	return decodeList[Course](payload, courseListWrapKey)
}

// GetCourses lists every course except the site course, enriched with
// overview files that core_course_get_courses does not return.
func (c *Client) GetCourses(ctx context.Context) ([]Course, error) {
	all, err := c.GetCoursesByIDs(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]Course, 0, len(all))
	for _, course := range all {
		if !course.IsSiteCourse() {
			list = append(list, course)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailFetchConcurrency)
	for i := range list {
		i := i
		g.Go(func() error {
			full, err := c.GetCourseByID(gctx, list[i].ID)
			if err != nil {
				return err
			}
			if full != nil {
				list[i].OverviewFiles = full.OverviewFiles
			}
			if list[i].OverviewFiles == nil {
				list[i].OverviewFiles = []OverviewFile{}
			}
			list[i].CourseImage = c.overviewImage(list[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return list, nil
}

// GetPublicCourses lists the courses of every real category. The LMS has no
// single call that excludes the front page, so categories are fetched first
// and queried concurrently; output keeps category order.
func (c *Client) GetPublicCourses(ctx context.Context) ([]Course, error) {
	categories, err := c.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	listed := make([]Category, 0, len(categories))
	for _, cat := range categories {
		if cat.ID > FrontPageCategoryID {
			listed = append(listed, cat)
		}
	}
	if len(listed) == 0 {
		return []Course{}, nil
	}

	perCategory := make([][]Course, len(listed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailFetchConcurrency)
	for i := range listed {
		i := i
		g.Go(func() error {
			courses, err := c.GetCoursesByCategory(gctx, listed[i].ID)
			if err != nil {
				return err
			}
			perCategory[i] = courses
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Course, 0)
	for _, courses := range perCategory {
		for _, course := range courses {
			if course.IsSiteCourse() {
				continue
			}
			out = append(out, course)
		}
	}
	return out, nil
}

// GetCoursePhoto returns the tokenized URL of the course's first overview
// file, or "" when there is none. course may be passed to skip the lookup.
func (c *Client) GetCoursePhoto(ctx context.Context, courseID int64, course *Course) (string, error) {
	if course == nil {
		resolved, err := c.GetCourseByID(ctx, courseID)
		if err != nil {
			return "", err
		}
		if resolved == nil {
			return "", nil
		}
		course = resolved
	}
	return c.overviewImage(*course), nil
}

func (c *Client) overviewImage(course Course) string {
	if len(course.OverviewFiles) == 0 || course.OverviewFiles[0].FileURL == "" {
		return ""
	}
	return WithToken(course.OverviewFiles[0].FileURL, c.token)
}

// GetCourseContents returns the sections of a course. An empty course yields
// an empty, non-nil slice.
func (c *Client) GetCourseContents(ctx context.Context, courseID int64) ([]Section, error) {
	payload, err := c.call(ctx, FnGetContents, Params{"courseid": courseID})
	if err != nil {
		return nil, err
	}
	return decodeList[Section](payload, sectionListWrapKey)
}

// GetCourseSections returns the section list of a course.
func (c *Client) GetCourseSections(ctx context.Context, courseID int64) ([]Section, error) {
	payload, err := c.call(ctx, FnGetSections, Params{"courseid": courseID})
	if err != nil {
		return nil, err
	}
	return decodeList[Section](payload, sectionListWrapKey)
}

// SearchCourses runs a full-text course search. page is zero based.
func (c *Client) SearchCourses(ctx context.Context, term string, page, perPage int) (*SearchResult, error) {
	if page < 0 {
		page = 0
	}
	if perPage <= 0 {
		perPage = defaultSearchPerPage
	}
	var res SearchResult
	err := c.Call(ctx, FnSearchCourses, Params{
		"criterianame":  "search",
		"criteriavalue": term,
		"page":          page,
		"perpage":       perPage,
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.Courses == nil {
		res.Courses = []Course{}
	}
	for i := range res.Courses {
		res.Courses[i].CourseImage = c.overviewImage(res.Courses[i])
	}
	return &res, nil
}
