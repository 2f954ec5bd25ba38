package handler

// RESPONSE HELPERS:
// Every JSON response except a validation failure uses one envelope:
//
//	{"success": true,  "data": ..., "meta": {"page":1,"limit":10,"total":12}}
//	{"success": true,  "message": "Post deleted"}
//	{"success": false, "error": "Post not found"}
//
// Validation failures carry field-level messages instead:
//
//	{"errors": [{"field":"username","message":"...","location":"body"}]}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/blog-platform/internal/apperror"
)

// Envelope is the standard response body.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta carries pagination details for list responses.
type Meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// ValidationResponse is the body of a 400 caused by invalid fields.
type ValidationResponse struct {
	Errors []apperror.FieldError `json:"errors"`
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, so all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// writeError maps a domain error to a status code and response body.
// Errors that are not *AppError are logged and reported as a bare 500 so no
// SQL or file path ever reaches the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, Envelope{Error: "Server Error"})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperror.ErrValidation):
		fields := appErr.Fields
		if len(fields) == 0 {
			fields = []apperror.FieldError{{Field: appErr.Field, Message: appErr.Message}}
		}
		writeJSON(w, http.StatusBadRequest, ValidationResponse{Errors: fields})
		return
	case errors.Is(err, apperror.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
	}

	message := appErr.Message
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
		message = "Server Error"
	}
	writeJSON(w, status, Envelope{Error: message})
}

// NotFound answers routes that match nothing.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, Envelope{Error: "Not Found - " + r.URL.Path})
}
