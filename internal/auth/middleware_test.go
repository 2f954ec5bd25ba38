package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/model"
)

type fakeUsers map[string]*model.User

func (f fakeUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

type brokenUsers struct{}

func (brokenUsers) GetUserByID(context.Context, string) (*model.User, error) {
	return nil, errors.New("database is locked")
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := auth.NewTokenService("middleware-test-secret-0123", time.Hour)
	require.NoError(t, err)

	users := fakeUsers{
		"u1": {ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: "secret-hash", Role: model.RoleUser},
	}
	valid, _ := tokens.Generate("u1")
	orphan, _ := tokens.Generate("deleted-user")
	expired, _ := tokens.GenerateWithDuration("u1", -time.Minute)

	var seen *model.User
	protected := auth.RequireAuth(tokens, users, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{"valid token", "Bearer " + valid, http.StatusNoContent, ""},
		{"missing header", "", http.StatusUnauthorized, "No token provided"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "No token provided"},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, "Token invalid or expired"},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized, "Token invalid or expired"},
		{"user no longer exists", "Bearer " + orphan, http.StatusUnauthorized, "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			protected.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantError == "" {
				require.NotNil(t, seen)
				assert.Equal(t, "alice", seen.Username)
				assert.Empty(t, seen.PasswordHash, "password hash must never reach handlers")
				assert.Equal(t, "secret-hash", users["u1"].PasswordHash, "stored user must not be mutated")
				return
			}
			assert.Nil(t, seen, "handler must not run")
			var body map[string]any
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestRequireAuth_StoreFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, _ := auth.NewTokenService("middleware-test-secret-0123", time.Hour)
	token, _ := tokens.Generate("u1")

	h := auth.RequireAuth(tokens, brokenUsers{}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestUserFromContext_Anonymous(t *testing.T) {
	user, ok := auth.UserFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, user)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer   tok123  ")
	token, ok := auth.BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "tok123", token)

	req.Header.Set("Authorization", "Bearer ")
	_, ok = auth.BearerToken(req)
	assert.False(t, ok)
}
