package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores accounts in the users table.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `id, username, email, password_hash, role, github_id, created_at, updated_at`

// Create inserts a new user, filling in ID, Role (when empty) and timestamps.
// A duplicate username or email yields apperror.ErrConflict.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.GitHubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("User already exists")
		}
		return fmt.Errorf("sqlite: creating user %s: %w", user.Username, err)
	}
	return nil
}

// GetUserByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email address.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// ExistsByEmailOrUsername reports whether a user holds either value.
func (u *UserDB) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int
	err := u.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ? OR username = ?`,
		email, username,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking user existence: %w", err)
	}
	return count > 0, nil
}

// UpsertGitHub inserts or refreshes the user linked to user.GitHubID.
//
// An existing account keeps its ID, username and role; only the email is
// refreshed. A new account whose login clashes with an existing username gets
// a short unique suffix.
func (u *UserDB) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: upserting GitHub user: github id is required")
	}

	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, *user.GitHubID)
	existing, err := scanUser(row)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	if existing != nil {
		existing.UpdatedAt = time.Now().UTC()
		if user.Email != "" {
			existing.Email = user.Email
		}
		_, err = u.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, updated_at = ? WHERE id = ?`,
			existing.Email, existing.UpdatedAt, existing.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", existing.ID, err)
		}
		*user = *existing
		return nil
	}

	err = u.Create(ctx, user)
	if err == nil || !isConflict(err) {
		return err
	}
	user.Username = fmt.Sprintf("%s-%s", user.Username, xid.New().String()[14:])
	return u.Create(ctx, user)
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		user     model.User
		githubID sql.NullInt64
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&githubID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		user.GitHubID = &id
	}
	return &user, nil
}
