package moodle

// Params is the parameter set passed to a web-service function. Values may be
// scalars, slices, maps or structs; see EncodeForm for the wire format.
type Params map[string]any

// OverviewFile is a course media asset served by the LMS file server.
type OverviewFile struct {
	FileName     string `json:"filename"`
	FilePath     string `json:"filepath"`
	FileSize     int64  `json:"filesize"`
	FileURL      string `json:"fileurl"`
	MimeType     string `json:"mimetype,omitempty"`
	TimeModified int64  `json:"timemodified"`
}

// Course is the course record returned by the core_course_* functions.
type Course struct {
	ID            int64          `json:"id"`
	ShortName     string         `json:"shortname"`
	FullName      string         `json:"fullname"`
	DisplayName   string         `json:"displayname,omitempty"`
	IDNumber      string         `json:"idnumber,omitempty"`
	CategoryID    int64          `json:"categoryid"`
	CategoryName  string         `json:"categoryname,omitempty"`
	Summary       string         `json:"summary"`
	SummaryFormat int            `json:"summaryformat,omitempty"`
	Format        string         `json:"format"`
	StartDate     int64          `json:"startdate"`
	EndDate       int64          `json:"enddate"`
	NumSections   int            `json:"numsections,omitempty"`
	Visible       int            `json:"visible"`
	Lang          string         `json:"lang,omitempty"`
	TimeCreated   int64          `json:"timecreated,omitempty"`
	TimeModified  int64          `json:"timemodified,omitempty"`
	OverviewFiles []OverviewFile `json:"overviewfiles"`

	// CourseImage is filled by this package with a tokenized overview file URL.
	CourseImage string `json:"courseImage,omitempty"`
}

// IsSiteCourse reports whether c is the LMS front page pseudo course.
func (c Course) IsSiteCourse() bool {
	return c.ID == SiteCourseID || c.ShortName == "SITE" || c.Format == "site"
}

// Category is a course category node.
type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	IDNumber     string `json:"idnumber,omitempty"`
	Description  string `json:"description,omitempty"`
	Parent       int64  `json:"parent"`
	SortOrder    int64  `json:"sortorder,omitempty"`
	CourseCount  int    `json:"coursecount"`
	Visible      int    `json:"visible"`
	Depth        int    `json:"depth,omitempty"`
	Path         string `json:"path,omitempty"`
	TimeModified int64  `json:"timemodified,omitempty"`
}

// ModuleContent is a file or URL attached to an activity.
type ModuleContent struct {
	Type     string `json:"type"`
	FileName string `json:"filename"`
	FileURL  string `json:"fileurl,omitempty"`
	FileSize int64  `json:"filesize,omitempty"`
	MimeType string `json:"mimetype,omitempty"`
}

// Module is an activity inside a course section.
type Module struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	ModName     string          `json:"modname"`
	Instance    int64           `json:"instance,omitempty"`
	Description string          `json:"description,omitempty"`
	URL         string          `json:"url,omitempty"`
	Visible     int             `json:"visible"`
	Contents    []ModuleContent `json:"contents,omitempty"`
}

// Section is one ordered block of a course's contents.
type Section struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Section int      `json:"section"`
	Summary string   `json:"summary,omitempty"`
	Visible int      `json:"visible"`
	Modules []Module `json:"modules"`
}

// User is an LMS account record.
type User struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	FirstName       string `json:"firstname,omitempty"`
	LastName        string `json:"lastname,omitempty"`
	FullName        string `json:"fullname,omitempty"`
	Email           string `json:"email,omitempty"`
	ProfileImageURL string `json:"profileimageurl,omitempty"`
}

// NewUser is the registration payload accepted by CreateUser.
type NewUser struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
}

// Token is issued by the login endpoint.
type Token struct {
	Token        string `json:"token"`
	PrivateToken string `json:"privatetoken,omitempty"`
}

// SiteInfo identifies the account behind a token.
type SiteInfo struct {
	UserID         int64  `json:"userid"`
	Username       string `json:"username"`
	FullName       string `json:"fullname,omitempty"`
	FirstName      string `json:"firstname,omitempty"`
	LastName       string `json:"lastname,omitempty"`
	SiteName       string `json:"sitename,omitempty"`
	UserPictureURL string `json:"userpictureurl,omitempty"`
}

// DisplayName returns the full name or the joined first/last names.
func (s SiteInfo) DisplayName() string {
	if s.FullName != "" {
		return s.FullName
	}
	switch {
	case s.FirstName != "" && s.LastName != "":
		return s.FirstName + " " + s.LastName
	case s.FirstName != "":
		return s.FirstName
	default:
		return s.LastName
	}
}

// SearchResult is returned by SearchCourses.
type SearchResult struct {
	Total   int      `json:"total"`
	Courses []Course `json:"courses"`
}

// GradeItem is one row of a user's grade report.
type GradeItem struct {
	ID                  int64    `json:"id"`
	ItemName            string   `json:"itemname"`
	ItemType            string   `json:"itemtype"`
	ItemModule          string   `json:"itemmodule,omitempty"`
	GradeRaw            *float64 `json:"graderaw"`
	GradeFormatted      string   `json:"gradeformatted"`
	GradeMin            float64  `json:"grademin"`
	GradeMax            float64  `json:"grademax"`
	PercentageFormatted string   `json:"percentageformatted,omitempty"`
	Feedback            string   `json:"feedback,omitempty"`
}

// UserGrades groups the grade items of one user in one course.
type UserGrades struct {
	CourseID     int64       `json:"courseid"`
	UserID       int64       `json:"userid"`
	UserFullName string      `json:"userfullname"`
	GradeItems   []GradeItem `json:"gradeitems"`
}

// RecentItem is a recently accessed activity.
type RecentItem struct {
	ID            int64  `json:"id"`
	CourseID      int64  `json:"courseid"`
	CMID          int64  `json:"cmid"`
	UserID        int64  `json:"userid"`
	ModName       string `json:"modname"`
	Name          string `json:"name"`
	CourseName    string `json:"coursename"`
	TimeAccess    int64  `json:"timeaccess"`
	ViewURL       string `json:"viewurl,omitempty"`
	CourseViewURL string `json:"courseviewurl,omitempty"`
}
