package adherence

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// The pipeline distinguishes three error kinds with different blast radii:
//
//   - ValidationError: a malformed record or argument. The record is
//     skipped, the run continues, and the skip is counted.
//   - StorageError: the store is unreachable or corrupt. Fatal; aborts
//     the run.
//   - RenderError: a chart received empty or malformed aggregate input.
//     That chart is skipped, remaining charts proceed.

// ValidationError reports a malformed input record or argument.
type ValidationError struct {
	// Message is a human-readable summary.
	Message string

	// Fields maps field names to their individual problems.
	Fields map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation: %s", e.Message)
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("validation: %s (%s)", e.Message, strings.Join(parts, "; "))
}

// NewValidationError creates a ValidationError with a summary message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// NewFieldError creates a ValidationError for a single bad field.
func NewFieldError(field, problem string) *ValidationError {
	return &ValidationError{
		Message: "invalid record",
		Fields:  map[string]string{field: problem},
	}
}

// StorageError reports an unreachable or corrupt store. Always fatal.
type StorageError struct {
	// Op names the failed store operation (open, insert event, query events).
	Op string

	// Err is the underlying database error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage: %s", e.Op)
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As chains.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps a database failure with its operation name.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// RenderError reports an unrenderable chart input.
type RenderError struct {
	// ChartType names the chart being rendered (line, bar, category-pie).
	ChartType string

	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.ChartType == "" {
		return fmt.Sprintf("render: %s", e.Message)
	}
	return fmt.Sprintf("render: %s: %s", e.ChartType, e.Message)
}

// NewRenderError creates a RenderError for a chart type.
func NewRenderError(chartType, message string) *RenderError {
	return &RenderError{ChartType: chartType, Message: message}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsRenderError reports whether err is (or wraps) a RenderError.
func IsRenderError(err error) bool {
	var re *RenderError
	return errors.As(err, &re)
}

// ErrorCategory returns the reporting category for err: "validation",
// "storage", "render", or "" for uncategorized errors. The CLI prints
// this alongside the failure message.
func ErrorCategory(err error) string {
	switch {
	case IsValidationError(err):
		return "validation"
	case IsStorageError(err):
		return "storage"
	case IsRenderError(err):
		return "render"
	default:
		return ""
	}
}
