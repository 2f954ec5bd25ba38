package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("post", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFoundMessage wraps ErrNotFound",
			err:       NotFoundMessage("Post not found"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "Title is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Validation wraps ErrValidation",
			err:       Validation(FieldError{Field: "email", Message: "invalid"}),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "ConflictMessage wraps ErrConflict",
			err:       ConflictMessage("Category already exists"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("No token provided"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "BadRequest wraps ErrBadRequest",
			err:       BadRequest("No file uploaded"),
			target:    ErrBadRequest,
			wantMatch: true,
		},
		{
			name:      "Forbidden does NOT match ErrUnauthorized",
			err:       Forbidden("Forbidden"),
			target:    ErrUnauthorized,
			wantMatch: false,
		},
		{
			name:      "wrapped NotFound still matches through fmt.Errorf",
			err:       fmt.Errorf("getting post: %w", NotFound("post", "x")),
			target:    ErrNotFound,
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("post", "abc123"),
			wantMessage: "post not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("title", "Title is required"),
			wantMessage: "Title is required",
		},
		{
			name: "Validation joins field messages",
			err: Validation(
				FieldError{Field: "username", Message: "username must be at least 3 characters"},
				FieldError{Field: "password", Message: "password must be at least 6 characters"},
			),
			wantMessage: "username must be at least 3 characters; password must be at least 6 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestValidationFields(t *testing.T) {
	err := Validation(
		FieldError{Field: "email", Message: "invalid email", Location: "body"},
		FieldError{Field: "password", Message: "too short", Location: "body"},
	)

	if err.Field != "email" {
		t.Errorf("Field = %q, want first field %q", err.Field, "email")
	}
	if len(err.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2", len(err.Fields))
	}

	single := ValidationFailed("content", "Content is required")
	if len(single.Fields) != 1 || single.Fields[0].Field != "content" {
		t.Errorf("ValidationFailed Fields = %+v, want one entry for content", single.Fields)
	}
}
