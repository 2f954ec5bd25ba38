package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

var _ repository.CategoryRepository = (*CategoryDB)(nil)

// CategoryDB stores categories in the categories table.
type CategoryDB struct {
	conn *sql.DB
}

// Create inserts a category. A duplicate name yields apperror.ErrConflict.
func (c *CategoryDB) Create(ctx context.Context, category *model.Category) error {
	now := time.Now().UTC()
	category.ID = xid.New().String()
	category.CreatedAt = now
	category.UpdatedAt = now

	_, err := c.conn.ExecContext(ctx,
		`INSERT INTO categories (id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		category.ID,
		category.Name,
		category.Description,
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("Category already exists")
		}
		return fmt.Errorf("sqlite: creating category %q: %w", category.Name, err)
	}
	return nil
}

// List returns every category ordered by name.
func (c *CategoryDB) List(ctx context.Context) ([]model.Category, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT id, name, description, created_at, updated_at
		 FROM categories
		 ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0)
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Description, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return categories, nil
}

// FindByRef looks ref up as an id, then as an exact name.
// Returns apperror.ErrNotFound when neither matches.
func (c *CategoryDB) FindByRef(ctx context.Context, ref string) (*model.Category, error) {
	var cat model.Category
	err := c.conn.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at
		 FROM categories
		 WHERE id = ? OR name = ?
		 ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END
		 LIMIT 1`,
		ref, ref, ref,
	).Scan(&cat.ID, &cat.Name, &cat.Description, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("category", ref)
		}
		return nil, fmt.Errorf("sqlite: finding category %q: %w", ref, err)
	}
	return &cat, nil
}

// EnsureByRef resolves ref like FindByRef and creates a category named ref
// when nothing matches. Two writers racing on the same new name both end up
// with the single row that won the UNIQUE constraint.
func (c *CategoryDB) EnsureByRef(ctx context.Context, ref string) (*model.Category, error) {
	cat, err := c.FindByRef(ctx, ref)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	cat = &model.Category{Name: ref}
	if err := c.Create(ctx, cat); err != nil {
		if isConflict(err) {
			return c.FindByRef(ctx, ref)
		}
		return nil, err
	}
	return cat, nil
}

func isConflict(err error) bool {
	return errors.Is(err, apperror.ErrConflict)
}
