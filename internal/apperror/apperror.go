// Package apperror defines the error taxonomy shared by every layer.
//
// Services and repositories return *AppError values that wrap one of the
// sentinel errors below. The HTTP layer (handler.writeError) is the only place
// that turns them into status codes, so nothing below it knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

// FieldError describes one invalid input field.
// Location says where the field came from: "body", "query" or "params".
type FieldError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

type AppError struct {
	Err     error        // actual error
	Message string       // Human-readable error message
	Field   string       // Optional: field causing the error
	Fields  []FieldError // Optional: every invalid field, for validation errors
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage is NotFound with a caller-chosen message, e.g. "Post not found".
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  []FieldError{{Field: field, Message: message, Location: "body"}},
	}
}

// Validation groups several field errors into one ErrValidation.
// The message joins the individual messages so Error() stays readable in logs.
func Validation(fields ...FieldError) *AppError {
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Message)
	}
	e := &AppError{
		Err:     ErrValidation,
		Message: strings.Join(msgs, "; "),
		Fields:  fields,
	}
	if len(fields) > 0 {
		e.Field = fields[0].Field
	}
	return e
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// ConflictMessage is Conflict with a caller-chosen message, e.g. "User already exists".
func ConflictMessage(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for a missing or rejected credential.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// BadRequest is a malformed request that is not about a single form field,
// such as a multipart upload without a file part.
func BadRequest(message string) *AppError {
	return &AppError{
		Err:     ErrBadRequest,
		Message: message,
	}
}
