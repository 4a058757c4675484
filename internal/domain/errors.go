package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrInvalidID is returned by repositories when an identifier is not in the
	// backend's format (e.g. not a 24-char hex ObjectID). It matches ErrValidation.
	ErrInvalidID = fmt.Errorf("%w: invalid id", ErrValidation)

	// ErrUnavailable indicates a dependency (e.g. the quiz generator) is not configured
	ErrUnavailable = errors.New("service unavailable")

	// ErrTreeCorrupted indicates the parent chain contains a cycle or exceeds the depth cap
	ErrTreeCorrupted = errors.New("tree corrupted")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (book, content, quiz)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NotEmptyError is returned when a book cannot be removed because it still has live children.
// It is a business-rule rejection and maps to 400, not 409.
type NotEmptyError struct {
	ID       string
	Children int64
}

func (e *NotEmptyError) Error() string {
	return "Cannot permanently delete a non-empty book. Remove or trash its contents first."
}

func (e *NotEmptyError) StatusCode() int { return http.StatusBadRequest }

// Is allows errors.Is() to match against ErrValidation
func (e *NotEmptyError) Is(target error) bool {
	return target == ErrValidation
}

// InvalidIDError wraps ErrInvalidID with the offending value
func InvalidIDError(field, value string) error {
	return fmt.Errorf("%s %q: %w", field, value, ErrInvalidID)
}
