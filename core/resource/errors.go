package resource

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned by adapters when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrReadOnly is returned when a resource does not support writes.
	ErrReadOnly = errors.New("resource is read-only")
)

// PropertyError describes why a single value was rejected.
type PropertyError struct {
	// Type is a short machine-readable kind, e.g. "required" or "unique".
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ValidationError is returned by adapters when a create or update is rejected
// for field-level reasons. Callers detect it with errors.As.
type ValidationError struct {
	// PropertyErrors maps property paths to their errors.
	PropertyErrors map[string]PropertyError

	// BaseError is a record-level error not tied to a single property.
	BaseError *PropertyError
}

// NewValidationError creates a ValidationError with the given property errors.
func NewValidationError(propertyErrors map[string]PropertyError) *ValidationError {
	if propertyErrors == nil {
		propertyErrors = make(map[string]PropertyError)
	}
	return &ValidationError{PropertyErrors: propertyErrors}
}

// Add records an error for a property path.
func (e *ValidationError) Add(path, kind, message string) *ValidationError {
	if e.PropertyErrors == nil {
		e.PropertyErrors = make(map[string]PropertyError)
	}
	e.PropertyErrors[path] = PropertyError{Type: kind, Message: message}
	return e
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	paths := make([]string, 0, len(e.PropertyErrors))
	for p := range e.PropertyErrors {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var msgs []string
	if e.BaseError != nil {
		msgs = append(msgs, e.BaseError.Message)
	}
	for _, p := range paths {
		msgs = append(msgs, fmt.Sprintf("%s: %s", p, e.PropertyErrors[p].Message))
	}
	if len(msgs) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// AsValidationError extracts a *ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
