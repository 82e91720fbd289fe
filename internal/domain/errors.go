// Package domain contains custom error types for the application.
package domain

import (
	"errors"
	"fmt"
)

// Base errors
var (
	ErrNotFound         = errors.New("resource not found")
	ErrTemplateNotFound = fmt.Errorf("template %w", ErrNotFound)
	ErrInvalidInput     = errors.New("invalid input")
	ErrBatchTooLarge    = errors.New("batch too large")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [field=%s]: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// TemplateError wraps failures while applying a catalog template
type TemplateError struct {
	TemplateID string
	Err        error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error [id=%s]: %v", e.TemplateID, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// NewTemplateError creates a new TemplateError
func NewTemplateError(id string, err error) *TemplateError {
	return &TemplateError{TemplateID: id, Err: err}
}
