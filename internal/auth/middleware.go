package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

// contextKey is unexported so no other package can read or shadow the user
// stored by this middleware.
type contextKey string

const userKey contextKey = "user"

// UserFinder loads the account a token refers to.
// repository.UserRepository satisfies it.
type UserFinder interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth rejects the request with 401 unless it carries a valid bearer
// token for a user that still exists. The resolved user, with its password
// hash cleared, is stored in the request context.
//
// Failure messages:
//   - no "Authorization: Bearer ..." header → "No token provided"
//   - token fails signature, issuer or expiry checks → "Token invalid or expired"
//   - token is fine but the user is gone → "Invalid token"
func RequireAuth(tokens *TokenService, users UserFinder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(r, tokens, users)
			if err != nil {
				var appErr *apperror.AppError
				if !errors.As(err, &appErr) {
					// Store failure, not a credential problem.
					logger.Error("auth: loading user", slog.String("error", err.Error()))
					writeAuthError(w, http.StatusInternalServerError, "Server Error")
					return
				}
				writeAuthError(w, http.StatusUnauthorized, appErr.Message)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user. Exposed for handler tests.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user stored by RequireAuth.
// Returns (nil, false) on an anonymous request.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func authenticate(r *http.Request, tokens *TokenService, users UserFinder) (*model.User, error) {
	raw, ok := BearerToken(r)
	if !ok {
		return nil, apperror.Unauthorized("No token provided")
	}

	userID, err := tokens.Validate(raw)
	if err != nil {
		return nil, apperror.Unauthorized("Token invalid or expired")
	}

	user, err := users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("Invalid token")
		}
		return nil, err
	}

	safe := *user
	safe.PasswordHash = ""
	return &safe, nil
}

// writeAuthError writes the standard {"success":false,"error":...} envelope.
// The handler package has its own writer, but importing it here would create
// an import cycle.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}
