package models

import "github.com/noah-isme/campus-portal-api/pkg/moodle"

// LoginRequest carries LMS credentials. Either Username or Email is required.
type LoginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"required_without=Username"`
	Password string `json:"password" validate:"required"`
}

// Identifier returns the trimmed username, falling back to the email.
func (r LoginRequest) Identifier() string {
	if r.Username != "" {
		return r.Username
	}
	return r.Email
}

// RegisterRequest creates an LMS account.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstname" validate:"required"`
	LastName  string `json:"lastname" validate:"required"`
}

// AuthResult is returned by login and registration. Session is the signed
// cookie value and is never serialized.
type AuthResult struct {
	User        *moodle.User `json:"user"`
	MoodleToken string       `json:"moodleToken"`
	Session     string       `json:"-"`
}

// UserLookupQuery selects an LMS user by one field.
type UserLookupQuery struct {
	Field moodle.UserField
	Value string
}

// UserLookupResult echoes the normalized lookup alongside the match.
type UserLookupResult struct {
	User  *moodle.User `json:"user"`
	Field string       `json:"field"`
	Value string       `json:"value"`
}

// SessionUser identifies the account behind a user token.
type SessionUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullname,omitempty"`
}

// MyCourses lists the courses of the signed-in user.
type MyCourses struct {
	User    SessionUser     `json:"user"`
	Courses []moodle.Course `json:"courses"`
}
