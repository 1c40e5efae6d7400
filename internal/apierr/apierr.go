package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status and a stable code alongside the cause.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, "not_found", fmt.Errorf("%s not found", what))
}

func InvalidInput(format string, args ...any) *Error {
	return New(http.StatusBadRequest, "invalid_input", fmt.Errorf(format, args...))
}

// Configuration marks a deployment defect (e.g. an unseeded catalog). Not retried.
func Configuration(err error) *Error {
	return New(http.StatusServiceUnavailable, "configuration_error", err)
}

func Conflict(err error) *Error {
	return New(http.StatusConflict, "conflict", err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "internal", err)
}

// StatusOf returns the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the error code for err, defaulting to "internal".
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	return "internal"
}

func Unauthenticated(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, "unauthenticated", fmt.Errorf(format, args...))
}

func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, "forbidden", fmt.Errorf(format, args...))
}
