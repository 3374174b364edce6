// Package errors provides structured application errors with stable string
// codes, shared across the tracker core and the collaborator clients.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies an error category. Codes are stable strings so they can
// cross process boundaries in JSON payloads and logs.
type Code string

const (
	CodeUnknown  Code = "UNKNOWN"
	CodeInternal Code = "INTERNAL"

	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeTimeout         Code = "TIMEOUT"
	CodeRateLimited     Code = "RATE_LIMITED"

	CodeConfigInvalid Code = "CONFIG_INVALID"

	CodeTranslateUnavailable   Code = "TRANSLATE_UNAVAILABLE"
	CodeTranslateBadResponse   Code = "TRANSLATE_BAD_RESPONSE"
	CodeTranslateResultEmpty   Code = "TRANSLATE_RESULT_EMPTY"
	CodeTranslateResultEcho    Code = "TRANSLATE_RESULT_ECHO"
	CodeTranslateResultGarbage Code = "TRANSLATE_RESULT_GARBAGE"
	CodeTranslateResultTooLong Code = "TRANSLATE_RESULT_TOO_LONG"
)

// AppError is the base error type with a code and optional metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with a formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// CodeOf returns the code of err, unwrapping as needed, or CodeUnknown for
// plain errors.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsCode checks whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether the error is worth retrying.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeUnavailable, CodeTimeout, CodeRateLimited, CodeTranslateUnavailable:
		return true
	default:
		return false
	}
}
