package moodle

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

var (
	// ErrMissingBaseURL is returned when the client is built without an LMS URL.
	ErrMissingBaseURL = errors.New("moodle: base URL is not configured")
	// ErrMissingToken is returned when a function client is built without a token.
	ErrMissingToken = errors.New("moodle: token is not configured")
	// ErrInvalidCredentials is returned when the token endpoint issues no token.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnexpectedResponse is returned when a payload matches none of the known shapes.
	ErrUnexpectedResponse = errors.New("moodle: unexpected response shape")
	// ErrUserNotCreated is returned when core_user_create_users yields no record.
	ErrUserNotCreated = errors.New("user creation failed")
)

const unknownErrorMessage = "Unknown error"

// ProtocolError is a logical failure reported inside a 200 OK body.
type ProtocolError struct {
	Function  string
	Exception string
	ErrorCode string
	Message   string
	DebugInfo string
}

func (e *ProtocolError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// TransportError is a network failure or a non-2xx response.
type TransportError struct {
	Endpoint   string
	Function   string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("lms request failed: %v", e.Err)
	}
	return fmt.Sprintf("lms request failed: HTTP %d - %s", e.StatusCode, snippet(e.Body, 900))
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LoginError wraps ErrInvalidCredentials with the upstream reason.
type LoginError struct {
	Reason string
}

func (e *LoginError) Error() string {
	return ErrInvalidCredentials.Error()
}

func (e *LoginError) Unwrap() error {
	return ErrInvalidCredentials
}

// Upstream error wording used by HTTPStatus.
const (
	msgRecordNotFound    = "Can't find data record in database"
	msgAccessDenied      = "Access control exception"
	msgNoViewParticipate = "View courses without participation"
)

// HTTPStatus maps an adapter error onto an HTTP status by inspecting its
// message. The LMS exposes no stable error taxonomy over REST, so this is a
// best-effort match on the upstream wording.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	msg := err.Error()
	var pe *ProtocolError
	if errors.As(err, &pe) && pe.DebugInfo != "" {
		msg += " " + pe.DebugInfo
	}
	switch {
	case strings.Contains(msg, msgRecordNotFound):
		return http.StatusNotFound
	case strings.Contains(msg, msgAccessDenied), strings.Contains(msg, msgNoViewParticipate):
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "…"
}
