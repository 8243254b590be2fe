package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/noah-isme/campus-portal-api/pkg/moodle"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUpstream           = New("UPSTREAM_ERROR", http.StatusBadGateway, "upstream LMS request failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid credentials")
	ErrRegistrationFailed = New("REGISTRATION_FAILED", http.StatusBadRequest, "registration failed")
)

// ErrCacheMiss is returned by cache lookups when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// FromLMS converts an LMS adapter failure into an *Error. Errors that map to
// 404 or 403 keep that status; anything else gets fallbackStatus, or 502 when
// fallbackStatus is zero. The upstream message is kept since it is the only
// diagnostic the caller gets.
func FromLMS(err error, fallbackStatus int) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, moodle.ErrInvalidCredentials) {
		return Wrap(err, ErrInvalidCredentials.Code, ErrInvalidCredentials.Status, ErrInvalidCredentials.Message)
	}

	status := moodle.HTTPStatus(err)
	switch status {
	case http.StatusNotFound:
		return Wrap(err, ErrNotFound.Code, status, messageOf(err))
	case http.StatusForbidden:
		return Wrap(err, ErrForbidden.Code, status, messageOf(err))
	}

	if fallbackStatus == 0 {
		fallbackStatus = http.StatusBadGateway
	}
	code := ErrUpstream.Code
	if fallbackStatus == ErrRegistrationFailed.Status {
		code = ErrRegistrationFailed.Code
	}
	return Wrap(err, code, fallbackStatus, messageOf(err))
}

func messageOf(err error) string {
	var pe *moodle.ProtocolError
	if errors.As(err, &pe) {
		return pe.Message
	}
	var te *moodle.TransportError
	if errors.As(err, &te) {
		return ErrUpstream.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return ErrUpstream.Message
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
