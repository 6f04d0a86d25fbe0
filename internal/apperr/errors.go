// Package apperr defines the error taxonomy shared by all services. Handlers
// map these to HTTP statuses; anything unrecognized is reported as a generic
// internal error.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError describes a single invalid field so forms can highlight every
// violation at once, not just the first.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed or out-of-range input. It carries every
// violated field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validation builds a ValidationError from field violations.
func Validation(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// AuthorizationError reports a wrong PIN, a non-owner mutation, or a wrong
// role. No partial state change is permitted when it is raised.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "not authorized"
	}
	return e.Reason
}

// Authorization builds an AuthorizationError with the given reason.
func Authorization(reason string) *AuthorizationError {
	return &AuthorizationError{Reason: reason}
}

// ConflictError reports a violated uniqueness or lifecycle constraint. The
// message names the constraint and the resource so the UI can show a specific
// remedy.
type ConflictError struct {
	Resource string
	ID       uint
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s %d: %s", e.Resource, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Resource, e.Reason)
}

// Conflict builds a ConflictError for the given resource.
func Conflict(resource string, id uint, reason string) *ConflictError {
	return &ConflictError{Resource: resource, ID: id, Reason: reason}
}

// NotFoundError reports a missing assignment, attempt, question or student.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
	}
	return e.Resource + " not found"
}

// NotFound builds a NotFoundError for the given resource.
func NotFound(resource string, id uint) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
