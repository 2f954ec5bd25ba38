// Package sqlite implements the repository interfaces using SQLite as the document store.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the server builds without a C
// toolchain and tests can run against ":memory:" databases.
//
// A post is stored as one row in posts plus its ordered comments in comments.
// Tags are kept on the post row as a JSON array, which keeps a post readable as
// a single document while categories and users stay separate, referenced rows.
package sqlite

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	sqlitedrv "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// casefold(text) is the Unicode case folding of text, available to every
// connection. SQLite's own lower() and LIKE only fold ASCII.
func init() {
	err := sqlitedrv.RegisterDeterministicScalarFunction("casefold", 1,
		func(_ *sqlitedrv.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return foldCase(v), nil
			case []byte:
				return foldCase(string(v)), nil
			case nil:
				return nil, nil
			default:
				return nil, fmt.Errorf("casefold: unsupported argument type %T", v)
			}
		})
	if err != nil {
		panic(fmt.Sprintf("sqlite: registering casefold: %v", err))
	}
}

// foldCase folds s for caseless matching. A Caser is not safe for concurrent
// use, so each call gets its own.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

// DB wraps a sql.DB connection pool. The per-entity stores returned by
// Users, Categories and Posts share it.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/blog.db" → file-based database (persistent)
//   - ":memory:"     → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", withPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand-new empty database,
	// so the pool must never grow past one connection.
	if strings.Contains(dbPath, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// withPragmas adds the per-connection pragmas to the DSN. The driver runs
// them on every connection it opens, not just the first one in the pool:
// foreign keys are OFF by default in SQLite and comments rely on
// ON DELETE CASCADE.
func withPragmas(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the user store backed by this database.
func (db *DB) Users() *UserDB { return &UserDB{conn: db.conn} }

// Categories returns the category store backed by this database.
func (db *DB) Categories() *CategoryDB { return &CategoryDB{conn: db.conn} }

// Posts returns the post store backed by this database.
func (db *DB) Posts() *PostDB { return &PostDB{conn: db.conn} }

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'user',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// github_id is added as a separate step so databases created before
	// GitHub sign-in existed pick it up on the next start.
	if err := db.addColumnIfNotExists("users", "github_id", "INTEGER"); err != nil {
		return fmt.Errorf("adding github_id to users: %w", err)
	}
	_, err = db.conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id ON users(github_id);
	`)
	if err != nil {
		return fmt.Errorf("creating users github_id index: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating categories table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id             TEXT PRIMARY KEY,
			title          TEXT NOT NULL,
			content        TEXT NOT NULL,
			excerpt        TEXT NOT NULL DEFAULT '',
			featured_image TEXT NOT NULL DEFAULT '',
			tags           TEXT NOT NULL DEFAULT '[]',
			slug           TEXT UNIQUE,
			category_id    TEXT REFERENCES categories(id),
			author_id      TEXT REFERENCES users(id),
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
		CREATE INDEX IF NOT EXISTS idx_posts_category_id ON posts(category_id);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	// seq gives comments a stable insertion order independent of clock resolution.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			user_id    TEXT REFERENCES users(id),
			content    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// nullString maps "" to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
