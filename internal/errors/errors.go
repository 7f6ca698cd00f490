// Package errors provides sentinel errors for modrel.
package errors

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Sentinel errors for known conditions.
var (
	// ErrValidation indicates the project definition failed schema or semantic checks.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a file, module output, or repository was not found.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates two inputs claim the same identity or path.
	ErrConflict = errors.New("conflict")

	// ErrAmbiguousBranch indicates a detached HEAD with no CI branch hint.
	ErrAmbiguousBranch = errors.New("ambiguous branch")

	// ErrOrdering indicates a task ran before one of its predecessors completed.
	ErrOrdering = errors.New("ordering violation")

	// ErrBundle indicates one or more bundles could not be assembled.
	ErrBundle = errors.New("bundle assembly failed")
)

// DetailError captures structured error information for terminal rendering.
type DetailError struct {
	// Type is the error category (required).
	Type string

	// Message is the specific description (required).
	Message string

	// Location is the file path, optionally with a line number.
	Location string

	// Field is the definition field at fault, for schema errors.
	Field string

	// Context contains additional key-value context.
	Context map[string]string

	// Hint provides actionable guidance.
	Hint string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *DetailError) Error() string {
	var b strings.Builder

	b.WriteString("Error: ")
	b.WriteString(e.Type)
	b.WriteString("\n")

	if e.Location != "" {
		b.WriteString("  Location: ")
		b.WriteString(e.Location)
		b.WriteString("\n")
	}
	if e.Field != "" {
		b.WriteString("  Field: ")
		b.WriteString(e.Field)
		b.WriteString("\n")
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.WriteString("  ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.Context[k])
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(e.Message)
	b.WriteString("\n")

	if e.Hint != "" {
		b.WriteString("\nHint: ")
		b.WriteString(e.Hint)
		b.WriteString("\n")
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *DetailError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a validation error with details.
func NewValidationError(message, location, field, hint string) error {
	return &DetailError{
		Type:     "validation failed",
		Message:  message,
		Location: location,
		Field:    field,
		Hint:     hint,
		Cause:    ErrValidation,
	}
}

// NewNotFoundError creates a not found error with details.
func NewNotFoundError(message, location, hint string) error {
	return &DetailError{
		Type:     "not found",
		Message:  message,
		Location: location,
		Hint:     hint,
		Cause:    ErrNotFound,
	}
}

// NewAmbiguousBranchError reports a detached HEAD that no CI variable disambiguates.
func NewAmbiguousBranchError(variables []string) error {
	return &DetailError{
		Type:    "ambiguous branch",
		Message: "HEAD is detached and none of the CI branch variables are set",
		Context: map[string]string{"Checked": strings.Join(variables, ", ")},
		Hint:    "Check out a branch or set one of: " + strings.Join(variables, ", "),
		Cause:   ErrAmbiguousBranch,
	}
}

// Wrap wraps an error with a sentinel error type.
func Wrap(sentinel error, message string) error {
	return fmt.Errorf("%s: %w", message, sentinel)
}
