package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// MinUsernameLength applies to the username after trimming.
const MinUsernameLength = 3

// AuthService registers accounts and signs users in.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService / PasswordService
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the signed-in user and the bearer token issued for it.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates an account and returns a token for it.
// Field format rules (length, email syntax) are checked by the handler;
// Register enforces uniqueness: a taken email OR username is a Conflict.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, apperror.ValidationFailed("body", "username, email and password are required")
	}
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("Username must be at least %d characters", MinUsernameLength))
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking existing user: %w", err)
	}
	if exists {
		return nil, apperror.ConflictMessage("User already exists")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	// The UNIQUE constraints still catch a concurrent registration.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

// Login verifies email and password. Unknown email and wrong password both
// return the same Unauthorized error so callers can't probe for accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("Invalid credentials")
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			// Accounts created through GitHub have no password hash at all.
			s.logger.Warn("password check failed", slog.String("userID", user.ID), slog.String("error", err.Error()))
		}
		return nil, apperror.Unauthorized("Invalid credentials")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub upserts the local account behind a GitHub profile
// and issues a token for it.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	email := normalizeEmail(ghUser.Email)
	if email == "" {
		email = ghUser.NoReplyEmail()
	}
	ghID := ghUser.ID
	user := &model.User{
		Username: ghUser.Login,
		Email:    email,
		Role:     model.RoleUser,
		GitHubID: &ghID,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)
	return s.issue(user)
}

// GetUserByID loads a user for the bearer middleware. The password hash is
// cleared on the returned copy.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.NotFound("user", id)
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	safe := *user
	safe.PasswordHash = ""
	return &AuthResult{User: &safe, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
