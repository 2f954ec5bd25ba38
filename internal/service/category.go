package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

const MaxCategoryNameLength = 100

// CategoryService lists and creates categories.
type CategoryService struct {
	repo   repository.CategoryRepository
	logger *slog.Logger
}

func NewCategoryService(repo repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger}
}

// List returns every category ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	cats, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/category: listing: %w", err)
	}
	return cats, nil
}

// Create adds a category. A taken name is a Conflict.
func (s *CategoryService) Create(ctx context.Context, name, description string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "Name is required")
	}
	if len(name) > MaxCategoryNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("Name must be at most %d characters", MaxCategoryNameLength))
	}

	cat := &model.Category{Name: name, Description: strings.TrimSpace(description)}
	if err := s.repo.Create(ctx, cat); err != nil {
		return nil, err
	}

	s.logger.Info("category created", slog.String("categoryID", cat.ID), slog.String("name", cat.Name))
	return cat, nil
}
