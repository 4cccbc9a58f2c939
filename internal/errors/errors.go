package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// User-fixable errors
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeRepositoryAccess ErrorCode = "REPOSITORY_ACCESS"

	// Remote host errors
	ErrCodeDuplicateRelease ErrorCode = "DUPLICATE_RELEASE"
	ErrCodeAuthorization    ErrorCode = "AUTHORIZATION"
	ErrCodeValidation       ErrorCode = "VALIDATION"
	ErrCodeTransientNetwork ErrorCode = "TRANSIENT_NETWORK"

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Exit codes reported by the CLI. NoReleaseNeeded is a successful no-op and
// exits zero, so it has no entry here.
const (
	ExitOK         = 0
	ExitInternal   = 1
	ExitConfig     = 2
	ExitRepository = 3
	ExitRemote     = 4
	ExitNetwork    = 5
)

// AppError represents an application error with additional context
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// ExitCode maps the error code to the process exit code.
func (e *AppError) ExitCode() int {
	switch e.Code {
	case ErrCodeConfigInvalid:
		return ExitConfig
	case ErrCodeRepositoryAccess:
		return ExitRepository
	case ErrCodeDuplicateRelease, ErrCodeAuthorization, ErrCodeValidation:
		return ExitRemote
	case ErrCodeTransientNetwork:
		return ExitNetwork
	default:
		return ExitInternal
	}
}

// New creates a new application error
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with application context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// CodeOf extracts the ErrorCode from an error chain, defaulting to
// ErrCodeInternal for plain errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// ExitCodeOf extracts the exit code from an error chain. A nil error exits
// zero.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return ExitInternal
}

// IsCode reports whether any error in the chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Common error constructors for convenience

// ConfigInvalid creates a configuration error
func ConfigInvalid(message string) *AppError {
	return New(ErrCodeConfigInvalid, message)
}

// RepositoryAccess creates a repository access error
func RepositoryAccess(err error, message string) *AppError {
	return Wrap(err, ErrCodeRepositoryAccess, message)
}

// DuplicateRelease creates a duplicate release error
func DuplicateRelease(tag string) *AppError {
	return New(ErrCodeDuplicateRelease, fmt.Sprintf("a release for tag %s already exists", tag))
}

// Authorization creates an authorization error
func Authorization(message string) *AppError {
	return New(ErrCodeAuthorization, message)
}

// Validation creates a validation error
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// TransientNetwork creates a network error after the retry budget is spent
func TransientNetwork(err error, message string) *AppError {
	return Wrap(err, ErrCodeTransientNetwork, message)
}

// Internal creates an internal error
func Internal(err error) *AppError {
	return Wrap(err, ErrCodeInternal, "internal error")
}
