package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/blog-platform/internal/apperror"
)

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"plain error hides details", errors.New("sql: no such table"), http.StatusInternalServerError, `{"success":false,"error":"Server Error"}`},
		{"not found", apperror.NotFoundMessage("Post not found"), http.StatusNotFound, `{"success":false,"error":"Post not found"}`},
		{"wrapped forbidden", fmt.Errorf("deleting: %w", apperror.Forbidden("Forbidden")), http.StatusForbidden, `{"success":false,"error":"Forbidden"}`},
		{"conflict", apperror.ConflictMessage("User already exists"), http.StatusConflict, `{"success":false,"error":"User already exists"}`},
		{"unauthorized", apperror.Unauthorized("Invalid credentials"), http.StatusUnauthorized, `{"success":false,"error":"Invalid credentials"}`},
		{"bad request", apperror.BadRequest("No file uploaded"), http.StatusBadRequest, `{"success":false,"error":"No file uploaded"}`},
		{
			"single field validation",
			apperror.ValidationFailed("content", "Content is required"),
			http.StatusBadRequest,
			`{"errors":[{"field":"content","message":"Content is required","location":"body"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, logger, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}

func TestPositiveIntParam(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"", 7, true},
		{"3", 3, true},
		{"0", 0, false},
		{"-2", 0, false},
		{"abc", 0, false},
		{"1.5", 0, false},
	}
	for _, tt := range tests {
		got, ok := positiveIntParam(tt.raw, 7)
		assert.Equal(t, tt.wantOK, ok, "raw=%q", tt.raw)
		if tt.wantOK {
			assert.Equal(t, tt.want, got, "raw=%q", tt.raw)
		}
	}
}
