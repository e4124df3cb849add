package errs

import (
	"errors"
	"net/http"
)

// Error is the single error currency between the repo, the handlers and the
// response envelope. Message is always safe to show a client; Err is not.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}

	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func BadRequest(code, message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Message: message}
}

func Unauthorized(code, message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: code, Message: message}
}

func Forbidden(code, message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: code, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "not_found", Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Status: http.StatusConflict, Code: code, Message: message}
}

func TooManyRequests(message string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: message}
}

// Internal wraps an unexpected failure. The cause is kept for server-side
// logging only; the client sees the generic message.
func Internal(err error, message string) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: "internal_error", Message: message, Err: err}
}

// From pulls an *Error out of an error chain, falling back to a generic 500.
func From(err error) *Error {
	var appErr *Error

	if errors.As(err, &appErr) {
		return appErr
	}

	return Internal(err, "Something went wrong")
}
