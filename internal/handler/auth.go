package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/service"
)

const oauthStateCookie = "oauth_state"

// GitHubSignIn is the part of *auth.GitHubProvider the handler uses.
type GitHubSignIn interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves registration, login and the optional GitHub flow.
//
//   - HandleRegister       → POST /api/auth/register
//   - HandleLogin          → POST /api/auth/login
//   - HandleMe             → GET  /api/auth/me (bearer)
//   - HandleGitHubLogin    → GET  /api/auth/github/login
//   - HandleGitHubCallback → GET  /api/auth/github/callback
type AuthHandler struct {
	auth   *service.AuthService
	github GitHubSignIn // nil when GitHub sign-in is not configured
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil.
func NewAuthHandler(svc *service.AuthService, github GitHubSignIn, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, github: github, logger: logger}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

func (r *registerRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// publicUser is the account shape returned next to a token.
type publicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type authPayload struct {
	User  publicUser `json:"user"`
	Token string     `json:"token"`
}

func newAuthPayload(result *service.AuthResult) authPayload {
	return authPayload{
		User: publicUser{
			ID:       result.User.ID,
			Username: result.User.Username,
			Email:    result.User.Email,
		},
		Token: result.Token,
	}
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, newAuthPayload(result))
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newAuthPayload(result))
}

// HandleMe returns the user RequireAuth resolved for this request.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Envelope{Error: "No token provided"})
		return
	}
	writeData(w, http.StatusOK, user)
}

// HandleGitHubLogin redirects to GitHub with a random state that is also
// stored in a short-lived HttpOnly cookie for the callback to compare.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeJSON(w, http.StatusNotFound, Envelope{Error: "GitHub sign-in is not configured"})
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback checks the state, exchanges the code and answers with
// the same {user, token} payload as HandleLogin.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeJSON(w, http.StatusNotFound, Envelope{Error: "GitHub sign-in is not configured"})
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: invalid state")
		writeJSON(w, http.StatusBadRequest, Envelope{Error: "Invalid OAuth state"})
		return
	}
	// Single use.
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		writeJSON(w, http.StatusUnauthorized, Envelope{Error: "GitHub authorization denied"})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, Envelope{Error: "Missing OAuth code"})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusUnauthorized, Envelope{Error: "GitHub authentication failed"})
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newAuthPayload(result))
}
