// Package repository declares the storage contracts the service layer depends on.
// internal/repository/sqlite provides the production implementation.
package repository

import (
	"context"

	"github.com/sakif/blog-platform/internal/model"
)

// ListOptions selects one page of posts.
//
// CategoryID is an already-resolved category id ("" means no constraint).
// Query is matched as a literal, case-insensitive substring of title,
// content or excerpt.
type ListOptions struct {
	Limit      int
	Offset     int
	CategoryID string
	Query      string
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// ExistsByEmailOrUsername reports whether either value is already taken.
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	// UpsertGitHub creates or refreshes the account linked to user.GitHubID.
	UpsertGitHub(ctx context.Context, user *model.User) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	List(ctx context.Context) ([]model.Category, error)
	// FindByRef matches ref against the id first and then the exact name.
	FindByRef(ctx context.Context, ref string) (*model.Category, error)
	// EnsureByRef is FindByRef that creates a category named ref on a miss.
	EnsureByRef(ctx context.Context, ref string) (*model.Category, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	SlugExists(ctx context.Context, slug, exceptID string) (bool, error)
	// List returns one page and the unpaginated total for the same filter.
	List(ctx context.Context, opts ListOptions) ([]model.Post, int, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
	AddComment(ctx context.Context, postID string, comment *model.Comment) error
}
