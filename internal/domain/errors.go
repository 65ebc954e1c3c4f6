// Package domain contains business logic types and errors.
// Domain errors represent business-level failures, NOT HTTP errors.
// They are infrastructure-agnostic and can be mapped to HTTP responses by adapters.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound indicates the requested entity does not exist.
	// A fetch that yields zero quotes surfaces as ErrNotFound.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable indicates a required dependency is unavailable.
	ErrUnavailable = errors.New("unavailable")
)

// NotFoundError provides context for not found errors.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error with context.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// NewEmptyResultError reports that a fetch or a random pick found no quotes.
func NewEmptyResultError() error {
	return &NotFoundError{Entity: "quotes"}
}

// UnavailableError provides context for unavailable errors.
type UnavailableError struct {
	Service string
	Reason  string
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unavailable", e.Service)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

// NewUnavailableError creates an unavailable error with context.
func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// RenderError reports that the source page could not be loaded or rendered:
// browser launch failure, navigation error or navigation timeout.
type RenderError struct {
	// URL is the page that was being rendered.
	URL string

	// Stage is the step that failed: launch, navigate, wait, snapshot, render
	// or parse.
	Stage string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s failed for %s: %v", e.Stage, e.URL, e.Err)
}

// Unwrap exposes both ErrUnavailable and the underlying cause, so callers can
// match either with errors.Is.
func (e *RenderError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}

// NewRenderError creates a render error for the given stage.
func NewRenderError(url, stage string, err error) error {
	return &RenderError{URL: url, Stage: stage, Err: err}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable checks if an error is an unavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsRenderFailure checks if an error originated in the page renderer.
func IsRenderFailure(err error) bool {
	var renderErr *RenderError
	return errors.As(err, &renderErr)
}
