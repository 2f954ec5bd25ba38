// Package service implements the business rules between the HTTP handlers
// and the repositories.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the document store
//
// Services depend on repository interfaces only, so tests inject in-memory
// fakes and cmd/server injects the SQLite store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gosimple/slug"
	"github.com/rs/xid"
	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// ListParams are the already-parsed query parameters of a post listing.
// Zero Page or Limit fall back to the defaults.
type ListParams struct {
	Page     int
	Limit    int
	Category string
	Query    string
}

// PostPage is one page of a listing plus the unpaginated total.
type PostPage struct {
	Posts []model.Post
	Page  int
	Limit int
	Total int
}

// PostPolicy holds the authorization switches for post writes.
type PostPolicy struct {
	// StrictOwnership applies the author-or-admin rule to updates as well.
	StrictOwnership bool
}

// PostService handles posts and their comments.
type PostService struct {
	posts      repository.PostRepository
	categories repository.CategoryRepository
	policy     PostPolicy
	logger     *slog.Logger
}

// NewPostService creates a PostService.
func NewPostService(
	posts repository.PostRepository,
	categories repository.CategoryRepository,
	policy PostPolicy,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:      posts,
		categories: categories,
		policy:     policy,
		logger:     logger,
	}
}

// List returns one page of posts, newest first.
//
// A category that resolves to nothing does not filter at all: the listing
// falls back to every post rather than returning an error or an empty page.
func (s *PostService) List(ctx context.Context, params ListParams) (*PostPage, error) {
	if params.Page < 1 {
		params.Page = DefaultPage
	}
	if params.Limit < 1 {
		params.Limit = DefaultLimit
	}

	opts := repository.ListOptions{
		Limit:  params.Limit,
		Offset: (params.Page - 1) * params.Limit,
		Query:  strings.TrimSpace(params.Query),
	}

	if ref := strings.TrimSpace(params.Category); ref != "" {
		cat, err := s.categories.FindByRef(ctx, ref)
		switch {
		case err == nil:
			opts.CategoryID = cat.ID
		case errors.Is(err, apperror.ErrNotFound):
			s.logger.Debug("category filter did not resolve, listing all", slog.String("category", ref))
		default:
			return nil, fmt.Errorf("service/post: resolving category filter: %w", err)
		}
	}

	posts, total, err := s.posts.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts: %w", err)
	}
	return &PostPage{Posts: posts, Page: params.Page, Limit: params.Limit, Total: total}, nil
}

// Get looks a post up by id first and by slug second.
func (s *PostService) Get(ctx context.Context, idOrSlug string) (*model.Post, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, apperror.NotFoundMessage("Post not found")
	}

	post, err := s.posts.GetByID(ctx, idOrSlug)
	if err == nil {
		return post, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	return s.posts.GetBySlug(ctx, idOrSlug)
}

// Create stores a new post written by author.
func (s *PostService) Create(ctx context.Context, author *model.User, in model.PostInput) (*model.Post, error) {
	post := &model.Post{
		Title:         strings.TrimSpace(in.Title),
		Content:       in.Content,
		Excerpt:       strings.TrimSpace(in.Excerpt),
		FeaturedImage: strings.TrimSpace(in.FeaturedImage),
		Tags:          normalizeTags(in.Tags),
	}
	if err := validatePost(post); err != nil {
		return nil, err
	}
	if author != nil {
		post.Author = author.Ref()
	}

	if ref := strings.TrimSpace(in.Category); ref != "" {
		cat, err := s.resolveCategory(ctx, ref)
		if err != nil {
			return nil, err
		}
		post.Category = &model.CategoryRef{ID: cat.ID, Name: cat.Name}
	}

	base := slug.Make(in.Slug)
	if base == "" {
		base = slug.Make(post.Title)
	}
	unique, err := s.uniqueSlug(ctx, base, "")
	if err != nil {
		return nil, err
	}
	post.Slug = unique

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.logger.Info("post created",
		slog.String("postID", post.ID),
		slog.String("authorID", post.AuthorID()),
		slog.String("slug", post.Slug),
	)
	return s.posts.GetByID(ctx, post.ID)
}

// Update merges patch into the stored post. Fields left nil in the patch are
// untouched; an empty category string clears the category.
func (s *PostService) Update(ctx context.Context, actor *model.User, id string, patch model.PostPatch) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.policy.StrictOwnership && !canModify(actor, post) {
		return nil, apperror.Forbidden("Forbidden")
	}

	if patch.Title != nil {
		post.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil {
		post.Content = *patch.Content
	}
	if patch.Excerpt != nil {
		post.Excerpt = strings.TrimSpace(*patch.Excerpt)
	}
	if patch.FeaturedImage != nil {
		post.FeaturedImage = strings.TrimSpace(*patch.FeaturedImage)
	}
	if patch.Tags != nil {
		post.Tags = normalizeTags(*patch.Tags)
	}
	if err := validatePost(post); err != nil {
		return nil, err
	}

	if patch.Category != nil {
		if ref := strings.TrimSpace(*patch.Category); ref == "" {
			post.Category = nil
		} else {
			cat, err := s.resolveCategory(ctx, ref)
			if err != nil {
				return nil, err
			}
			post.Category = &model.CategoryRef{ID: cat.ID, Name: cat.Name}
		}
	}

	if patch.Slug != nil {
		base := slug.Make(*patch.Slug)
		if base == "" {
			post.Slug = ""
		} else if base != post.Slug {
			if post.Slug, err = s.uniqueSlug(ctx, base, post.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}

	s.logger.Info("post updated", slog.String("postID", post.ID))
	return s.posts.GetByID(ctx, post.ID)
}

// Delete removes a post. Only its author or an admin may do so; a post
// without an author can be removed by any authenticated user.
func (s *PostService) Delete(ctx context.Context, actor *model.User, id string) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(actor, post) {
		return apperror.Forbidden("Forbidden")
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return err
	}
	s.logger.Info("post deleted", slog.String("postID", post.ID))
	return nil
}

// AddComment appends a comment by actor and returns only that comment.
func (s *PostService) AddComment(ctx context.Context, actor *model.User, postID, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "Content is required")
	}

	comment := &model.Comment{Content: content}
	if actor != nil {
		comment.User = actor.Ref()
	}
	if err := s.posts.AddComment(ctx, postID, comment); err != nil {
		return nil, err
	}

	s.logger.Info("comment added",
		slog.String("postID", postID),
		slog.String("commentID", comment.ID),
	)
	return comment, nil
}

// resolveCategory finds ref by id or name and creates a category named ref
// when nothing matches. Free-form category tagging relies on this.
func (s *PostService) resolveCategory(ctx context.Context, ref string) (*model.Category, error) {
	cat, err := s.categories.EnsureByRef(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("service/post: resolving category %q: %w", ref, err)
	}
	return cat, nil
}

// uniqueSlug returns base, or base with a short suffix when another post
// (other than exceptID) already uses it.
func (s *PostService) uniqueSlug(ctx context.Context, base, exceptID string) (string, error) {
	if base == "" {
		return "", nil
	}
	taken, err := s.posts.SlugExists(ctx, base, exceptID)
	if err != nil {
		return "", fmt.Errorf("service/post: checking slug: %w", err)
	}
	if !taken {
		return base, nil
	}
	id := xid.New().String()
	return base + "-" + id[len(id)-6:], nil
}

func canModify(actor *model.User, post *model.Post) bool {
	if post.Author == nil {
		return true
	}
	if actor == nil {
		return false
	}
	return actor.ID == post.Author.ID || actor.IsAdmin()
}

func validatePost(post *model.Post) error {
	var fields []apperror.FieldError
	if post.Title == "" {
		fields = append(fields, apperror.FieldError{Field: "title", Message: "Title is required", Location: "body"})
	}
	if strings.TrimSpace(post.Content) == "" {
		fields = append(fields, apperror.FieldError{Field: "content", Message: "Content is required", Location: "body"})
	}
	if len(fields) > 0 {
		return apperror.Validation(fields...)
	}
	return nil
}

// normalizeTags trims tags and drops empties and duplicates, keeping order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
