// Package errors provides error handling utilities for the projection engine.
package errors

import (
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeConfig indicates missing or invalid per-region/fuel configuration.
	// Processing for the affected group is skipped, not the whole run.
	TypeConfig Type = "CONFIG_ERROR"

	// TypeData indicates physically inconsistent input data.
	// These are run-fatal: any output would be unsound.
	TypeData Type = "DATA_ERROR"

	// TypeCapacity indicates resource exhaustion in capacity balancing
	TypeCapacity Type = "CAPACITY_ERROR"

	// TypeIngest indicates a tabular input could not be read or validated
	TypeIngest Type = "INGEST_ERROR"

	// TypeExport indicates an output table could not be written
	TypeExport Type = "EXPORT_ERROR"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithGroup tags the error with the region/fuel group it arose in
func (e *Error) WithGroup(region, fuel string) *Error {
	return e.WithContext("region", region).WithContext("fuel", fuel)
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, t Type) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == t
	}
	return false
}

// Config creates a group-configuration error
func Config(message string) *Error {
	return New(TypeConfig, message)
}

// Data creates a run-fatal data-consistency error
func Data(message string) *Error {
	return New(TypeData, message)
}

// Ingest creates an ingestion error
func Ingest(message string, cause error) *Error {
	return Wrap(TypeIngest, message, cause)
}

// Export creates an export error
func Export(message string, cause error) *Error {
	return Wrap(TypeExport, message, cause)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
