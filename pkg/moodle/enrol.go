package moodle

import "context"

// GetUserCourses lists the courses userID is enrolled in.
func (c *Client) GetUserCourses(ctx context.Context, userID int64) ([]Course, error) {
	payload, err := c.call(ctx, FnGetUsersCourses, Params{"userid": userID})
	if err != nil {
		return nil, err
	}
	return decodeList[Course](payload, courseListWrapKey)
}

// IsEnrolled reports whether courseID is among the courses of userID.
func (c *Client) IsEnrolled(ctx context.Context, userID, courseID int64) (bool, error) {
	courses, err := c.GetUserCourses(ctx, userID)
	if err != nil {
		return false, err
	}
	return containsCourse(courses, courseID), nil
}

func containsCourse(courses []Course, courseID int64) bool {
	for _, course := range courses {
		if course.ID == courseID {
			return true
		}
	}
	return false
}

// EnrollUserInCourse enrols userID into courseID with the configured student
// role. It is not idempotent: the LMS may reject a second enrolment, so
// callers check IsEnrolled first. That check-then-act pair is not atomic.
func (c *Client) EnrollUserInCourse(ctx context.Context, userID, courseID int64) error {
	return c.Call(ctx, FnManualEnrolUsers, Params{
		"enrolments": []Params{{
			"roleid":   c.studentRoleID,
			"userid":   userID,
			"courseid": courseID,
		}},
	}, nil)
}
