// Package errors provides structured error handling with HTTP status mapping.
// Handlers return *Error values; the echo middleware converts them into JSON
// responses and metrics.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Type categorizes an error for response formatting and metrics.
type Type string

const (
	// TypeValidation indicates invalid input (HTTP 400).
	TypeValidation Type = "validation"
	// TypeUnauthorized indicates a missing or invalid session (HTTP 401).
	TypeUnauthorized Type = "unauthorized"
	// TypeNotFound indicates a missing resource (HTTP 404).
	TypeNotFound Type = "not_found"
	// TypeConflict indicates a resource conflict (HTTP 409).
	TypeConflict Type = "conflict"
	// TypeInternal indicates a server-side error (HTTP 500).
	TypeInternal Type = "internal"
	// TypeExternal indicates a collaborator failure (HTTP 502).
	TypeExternal Type = "external"
)

// Error is a structured error with type, message, cause and context fields.
type Error struct {
	Type    Type
	Message string
	Cause   error
	Context map[string]any
	// Fields holds field-level validation errors, when applicable.
	Fields map[string]string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error type to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError creates a validation error (HTTP 400).
func ValidationError(message string) *Error {
	return &Error{Type: TypeValidation, Message: message, Context: map[string]any{}}
}

// FieldValidationError creates a validation error carrying field-level detail.
func FieldValidationError(message string, fields map[string]string) *Error {
	return &Error{Type: TypeValidation, Message: message, Context: map[string]any{}, Fields: fields}
}

// UnauthorizedError creates an unauthorized error (HTTP 401).
func UnauthorizedError(message string) *Error {
	return &Error{Type: TypeUnauthorized, Message: message, Context: map[string]any{}}
}

// NotFoundError creates a not-found error (HTTP 404).
func NotFoundError(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message, Context: map[string]any{}}
}

// ConflictError creates a conflict error (HTTP 409).
func ConflictError(message string) *Error {
	return &Error{Type: TypeConflict, Message: message, Context: map[string]any{}}
}

// InternalError creates an internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause, Context: map[string]any{}}
}

// ExternalError creates a collaborator error (HTTP 502).
func ExternalError(message string, cause error) *Error {
	return &Error{Type: TypeExternal, Message: message, Cause: cause, Context: map[string]any{}}
}

// WithField adds a context field to the error (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

// Response is the JSON structure sent to clients.
type Response struct {
	Error   string            `json:"error"`
	Type    Type              `json:"type"`
	Fields  map[string]string `json:"fields,omitempty"`
	Context map[string]any    `json:"context,omitempty"`
}

// ToResponse converts an Error to its JSON form.
func (e *Error) ToResponse() Response {
	return Response{
		Error:   e.Message,
		Type:    e.Type,
		Fields:  e.Fields,
		Context: e.Context,
	}
}

// AsStructured converts any error into a structured Error, wrapping unknown
// errors as internal.
func AsStructured(err error) *Error {
	if err == nil {
		return nil
	}

	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}

	return InternalError("internal server error", err)
}
