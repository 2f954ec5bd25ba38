package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/auth"
)

// newTestAuthService returns an AuthService wired with fake dependencies.
func newTestAuthService(t *testing.T, repo *fakeUserRepo) (*AuthService, *auth.TokenService) {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum — makes tests fast
	ps := auth.NewPasswordServiceForTest(4)

	return NewAuthService(repo, ts, ps, testLogger()), ts
}

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	repo := newFakeUserRepo()
	svc, ts := newTestAuthService(t, repo)

	result, err := svc.Register(context.Background(), " alice ", "Alice@Example.COM", "secret1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if result.User.ID == "" {
		t.Error("User.ID should be set after register")
	}
	if result.User.Username != "alice" {
		t.Errorf("Username = %q, want %q", result.User.Username, "alice")
	}
	if result.User.Email != "alice@example.com" {
		t.Errorf("Email = %q, want lower-cased %q", result.User.Email, "alice@example.com")
	}
	if result.User.PasswordHash != "" {
		t.Error("returned user must not carry the password hash")
	}
	if result.User.Role != "user" {
		t.Errorf("Role = %q, want default %q", result.User.Role, "user")
	}

	subject, err := ts.Validate(result.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if subject != result.User.ID {
		t.Errorf("token subject = %q, want %q", subject, result.User.ID)
	}

	stored := repo.users[result.User.ID]
	if stored.PasswordHash == "" || stored.PasswordHash == "secret1" {
		t.Errorf("stored hash = %q, want a bcrypt hash", stored.PasswordHash)
	}
}

func TestRegister_DuplicateEmailOrUsername(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	if _, err := svc.Register(context.Background(), "alice", "alice@example.com", "secret1"); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tests := []struct {
		name, username, email string
	}{
		{"same email", "bob", "ALICE@example.com"},
		{"same username", "alice", "other@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.username, tt.email, "secret1")
			if !errors.Is(err, apperror.ErrConflict) {
				t.Fatalf("error = %v, want ErrConflict", err)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Message != "User already exists" {
				t.Errorf("Message = %q, want %q", appErr.Message, "User already exists")
			}
		})
	}
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.Register(context.Background(), "  ", "a@b.com", "secret1")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestRegister_ShortAfterTrimming(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), "  a ", "pad@example.com", "secret1")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Field != "username" {
		t.Errorf("Field = %q, want username", appErr.Field)
	}
	if len(repo.users) != 0 {
		t.Errorf("stored %d users, want none", len(repo.users))
	}
}

func TestRegister_StoreError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.existsErr = errors.New("database is on fire")
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "secret1")
	if err == nil {
		t.Fatal("Register() should propagate repository errors")
	}
	if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrValidation) {
		t.Errorf("store failure must not look like a client error: %v", err)
	}
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	registered, err := svc.Register(context.Background(), "alice", "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	t.Run("correct credentials", func(t *testing.T) {
		result, err := svc.Login(context.Background(), "ALICE@example.com", "secret1")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if result.User.ID != registered.User.ID {
			t.Errorf("User.ID = %q, want %q", result.User.ID, registered.User.ID)
		}
		if result.Token == "" {
			t.Error("Login() returned empty Token")
		}
	})

	for name, creds := range map[string][2]string{
		"wrong password": {"alice@example.com", "wrong-pass"},
		"unknown email":  {"nobody@example.com", "secret1"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), creds[0], creds[1])
			if !errors.Is(err, apperror.ErrUnauthorized) {
				t.Fatalf("error = %v, want ErrUnauthorized", err)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Message != "Invalid credentials" {
				t.Errorf("Message = %q, want %q", appErr.Message, "Invalid credentials")
			}
		})
	}
}

func TestLogin_GitHubAccountHasNoPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	if _, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 3, Login: "octo", Email: "octo@example.com",
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err := svc.Login(context.Background(), "octo@example.com", "")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:    42,
		Login: "octocat",
		Email: "Octocat@GitHub.com",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	if result.Token == "" {
		t.Fatal("LoginOrRegisterGitHub() returned empty Token")
	}
	if result.User.Username != "octocat" {
		t.Errorf("Username = %q, want %q", result.User.Username, "octocat")
	}
	if result.User.Email != "octocat@github.com" {
		t.Errorf("Email = %q, want %q", result.User.Email, "octocat@github.com")
	}
}

func TestLoginOrRegisterGitHub_HiddenEmailUsesNoReply(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "shy"})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if want := "7+shy@users.noreply.github.com"; result.User.Email != want {
		t.Errorf("Email = %q, want %q", result.User.Email, want)
	}
}

func TestLoginOrRegisterGitHub_ExistingUserKeepsID(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	first, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 99, Login: "octo", Email: "old@email.com"})
	if err != nil {
		t.Fatalf("first login error: %v", err)
	}
	second, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 99, Login: "octo", Email: "new@email.com"})
	if err != nil {
		t.Fatalf("second login error: %v", err)
	}

	if second.User.ID != first.User.ID {
		t.Errorf("User.ID = %q, want unchanged %q", second.User.ID, first.User.ID)
	}
	if second.User.Email != "new@email.com" {
		t.Errorf("Email after update = %q, want %q", second.User.Email, "new@email.com")
	}
}

func TestLoginOrRegisterGitHub_Errors(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	if _, err := svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Error("LoginOrRegisterGitHub() should return error for nil GitHubUser")
	}

	repo.upsertErr = errors.New("database is on fire")
	if _, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "user"}); err == nil {
		t.Error("LoginOrRegisterGitHub() should propagate repository errors")
	}
}

// =========================================================================
// GetUserByID TESTS
// =========================================================================

func TestGetUserByID(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	registered, err := svc.Register(context.Background(), "findme", "findme@example.com", "secret1")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	user, err := svc.GetUserByID(context.Background(), registered.User.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if user.Username != "findme" {
		t.Errorf("Username = %q, want %q", user.Username, "findme")
	}
	if user.PasswordHash != "" {
		t.Error("GetUserByID() must clear the password hash")
	}

	for _, id := range []string{"", "non-existent-id"} {
		if _, err := svc.GetUserByID(context.Background(), id); !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("GetUserByID(%q) error = %v, want ErrNotFound", id, err)
		}
	}
}
