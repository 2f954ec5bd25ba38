package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

// newTestDB returns a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, u *UserDB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$not-a-real-hash",
	}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	u := newTestDB(t).Users()

	user := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.Role != model.RoleUser {
		t.Errorf("Role = %q, want default %q", user.Role, model.RoleUser)
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "alice")

	dup := &model.User{Username: "alice2", Email: "alice@example.com"}
	err := u.Create(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() duplicate email error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "alice")

	dup := &model.User{Username: "alice", Email: "other@example.com"}
	err := u.Create(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() duplicate username error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetUserByID(t *testing.T) {
	u := newTestDB(t).Users()
	created := createTestUser(t, u, "bob")

	got, err := u.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Username != "bob" || got.Email != "bob@example.com" {
		t.Errorf("GetUserByID() = %+v, want bob", got)
	}
	if got.PasswordHash == "" {
		t.Error("GetUserByID() should load the password hash for the auth layer")
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	u := newTestDB(t).Users()

	_, err := u.GetUserByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetByEmail(t *testing.T) {
	u := newTestDB(t).Users()
	created := createTestUser(t, u, "carol")

	got, err := u.GetByEmail(context.Background(), "carol@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail() ID = %q, want %q", got.ID, created.ID)
	}

	_, err = u.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail() unknown email error = %v, want ErrNotFound", err)
	}
}

func TestExistsByEmailOrUsername(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "dave")

	tests := []struct {
		name     string
		email    string
		username string
		want     bool
	}{
		{"email taken", "dave@example.com", "someone", true},
		{"username taken", "new@example.com", "dave", true},
		{"both free", "new@example.com", "someone", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := u.ExistsByEmailOrUsername(context.Background(), tt.email, tt.username)
			if err != nil {
				t.Fatalf("ExistsByEmailOrUsername() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExistsByEmailOrUsername() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =========================================================================
// GITHUB UPSERT TESTS
// =========================================================================

func TestUpsertGitHub_CreatesThenRefreshes(t *testing.T) {
	u := newTestDB(t).Users()
	ctx := context.Background()
	ghID := int64(4242)

	first := &model.User{Username: "octo", Email: "octo@example.com", GitHubID: &ghID}
	if err := u.UpsertGitHub(ctx, first); err != nil {
		t.Fatalf("UpsertGitHub() first call error = %v", err)
	}

	second := &model.User{Username: "octo", Email: "octo@new.example.com", GitHubID: &ghID}
	if err := u.UpsertGitHub(ctx, second); err != nil {
		t.Fatalf("UpsertGitHub() second call error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("UpsertGitHub() changed the internal ID: %q → %q", first.ID, second.ID)
	}
	if second.Email != "octo@new.example.com" {
		t.Errorf("Email = %q, want refreshed email", second.Email)
	}
}

func TestUpsertGitHub_UsernameClash(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "octo")
	ghID := int64(7)

	user := &model.User{Username: "octo", Email: "octo-gh@example.com", GitHubID: &ghID}
	if err := u.UpsertGitHub(context.Background(), user); err != nil {
		t.Fatalf("UpsertGitHub() error = %v", err)
	}
	if user.Username == "octo" {
		t.Error("UpsertGitHub() should have suffixed a clashing username")
	}
}
