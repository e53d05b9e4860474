package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/slug"
)

// CategoryService manages categories and their subcategories.
type CategoryService struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
	now    func() time.Time
}

// NewCategoryService creates a new category service.
func NewCategoryService(uow repository.UnitOfWork, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		uow:    uow,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateCategory adds a category with a unique name.
func (s *CategoryService) CreateCategory(ctx context.Context, input domain.CategoryInput) (*domain.Category, error) {
	name, err := requiredName(input.Name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &domain.Category{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        slug.Generate(name),
		Description: trimmed(input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		exists, err := repos.Categories.NameExists(ctx, name, "")
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateName("category", name)
		}
		return repos.Categories.Create(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	c.Subcategories = []domain.Subcategory{}
	s.logger.InfoContext(ctx, "category created", slog.String("category_id", c.ID), slog.String("name", name))
	return c, nil
}

// UpdateCategory applies the non-nil fields of input.
func (s *CategoryService) UpdateCategory(ctx context.Context, id string, input domain.CategoryInput) (*domain.Category, error) {
	var c *domain.Category
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		existing, err := repos.Categories.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return domain.ErrCategoryNotFound(id)
			}
			return err
		}

		if input.Name != nil {
			name, err := requiredName(input.Name)
			if err != nil {
				return err
			}
			exists, err := repos.Categories.NameExists(ctx, name, id)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrDuplicateName("category", name)
			}
			existing.Name = name
			existing.Slug = slug.Generate(name)
		}
		if input.Description != nil {
			existing.Description = trimmed(input.Description)
		}
		existing.UpdatedAt = s.now()

		if err := repos.Categories.Update(ctx, existing); err != nil {
			return err
		}
		c = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes a category that has no subcategories.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Categories.GetByID(ctx, id); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return domain.ErrCategoryNotFound(id)
			}
			return err
		}
		n, err := repos.Subcategories.CountByCategory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrHasDependents("category", id, fmt.Sprintf("%d subcategories", n))
		}
		return repos.Categories.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	return nil
}

// ListCategories returns every category with its subcategories.
func (s *CategoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.uow.Repositories().Categories.ListWithSubcategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CreateSubcategory adds a subcategory under an existing category.
func (s *CategoryService) CreateSubcategory(ctx context.Context, categoryID string, input domain.CategoryInput) (*domain.Subcategory, error) {
	name, err := requiredName(input.Name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub := &domain.Subcategory{
		ID:          uuid.NewString(),
		CategoryID:  categoryID,
		Name:        name,
		Slug:        slug.Generate(name),
		Description: trimmed(input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Categories.GetByID(ctx, categoryID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return domain.ErrCategoryNotFound(categoryID)
			}
			return err
		}
		exists, err := repos.Subcategories.NameExists(ctx, name, "")
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateName("subcategory", name)
		}
		return repos.Subcategories.Create(ctx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("create subcategory: %w", err)
	}

	s.logger.InfoContext(ctx, "subcategory created",
		slog.String("subcategory_id", sub.ID),
		slog.String("category_id", categoryID),
	)
	return sub, nil
}

// UpdateSubcategory applies the non-nil fields of input.
func (s *CategoryService) UpdateSubcategory(ctx context.Context, id string, input domain.CategoryInput) (*domain.Subcategory, error) {
	var sub *domain.Subcategory
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		existing, err := repos.Subcategories.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return domain.ErrSubcategoryNotFound(id)
			}
			return err
		}

		if input.Name != nil {
			name, err := requiredName(input.Name)
			if err != nil {
				return err
			}
			exists, err := repos.Subcategories.NameExists(ctx, name, id)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrDuplicateName("subcategory", name)
			}
			existing.Name = name
			existing.Slug = slug.Generate(name)
		}
		if input.Description != nil {
			existing.Description = trimmed(input.Description)
		}
		existing.UpdatedAt = s.now()

		if err := repos.Subcategories.Update(ctx, existing); err != nil {
			return err
		}
		sub = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update subcategory: %w", err)
	}
	return sub, nil
}

// DeleteSubcategory removes a subcategory that has no products.
func (s *CategoryService) DeleteSubcategory(ctx context.Context, id string) error {
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := subcategoryExists(ctx, repos, id); err != nil {
			return err
		}
		n, err := repos.Products.CountBySubcategory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrHasDependents("subcategory", id, fmt.Sprintf("%d products", n))
		}
		return repos.Subcategories.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	s.logger.InfoContext(ctx, "subcategory deleted", slog.String("subcategory_id", id))
	return nil
}

// ListSubcategories returns the subcategories of a category.
func (s *CategoryService) ListSubcategories(ctx context.Context, categoryID string) ([]domain.Subcategory, error) {
	repos := s.uow.Repositories()
	if _, err := repos.Categories.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrCategoryNotFound(categoryID)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	subs, err := repos.Subcategories.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	return subs, nil
}

func requiredName(name *string) (string, error) {
	if name == nil || strings.TrimSpace(*name) == "" {
		return "", apperrors.InvalidInput("name is required")
	}
	return strings.TrimSpace(*name), nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
