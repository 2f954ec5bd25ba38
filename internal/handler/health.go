// Package handler contains the HTTP handlers of the blog API.
//
// A handler's job is to:
//  1. parse the request (URL params, query, JSON body) and validate it
//  2. call one service method
//  3. write the response envelope, or hand the error to writeError
//
// Business rules live in internal/service; handlers never touch the store.
package handler

import (
	"io"
	"net/http"
)

// Root answers GET / so a browser or load balancer sees the API is up.
func Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Blog API is running")
}

// Health answers GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
