package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CategoryRepository implements repository.CategoryRepository in memory.
type CategoryRepository struct {
	a *access
}

// Create stores a category; names are unique case-insensitively.
func (r *CategoryRepository) Create(_ context.Context, c *domain.Category) error {
	return r.a.do(func(d *dataset) error {
		if categoryNameTaken(d, c.Name, "") {
			return domain.ErrDuplicateName("category", c.Name)
		}
		stored := *c
		stored.Subcategories = nil
		d.categories[c.ID] = stored
		return nil
	})
}

// GetByID returns the category or apperrors.ErrNotFound.
func (r *CategoryRepository) GetByID(_ context.Context, id string) (*domain.Category, error) {
	var out *domain.Category
	err := r.a.do(func(d *dataset) error {
		c, ok := d.categories[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

// Update replaces a category, keeping names unique.
func (r *CategoryRepository) Update(_ context.Context, c *domain.Category) error {
	return r.a.do(func(d *dataset) error {
		if _, ok := d.categories[c.ID]; !ok {
			return apperrors.ErrNotFound
		}
		if categoryNameTaken(d, c.Name, c.ID) {
			return domain.ErrDuplicateName("category", c.Name)
		}
		stored := *c
		stored.Subcategories = nil
		d.categories[c.ID] = stored
		return nil
	})
}

// Delete removes a category.
func (r *CategoryRepository) Delete(_ context.Context, id string) error {
	return r.a.do(func(d *dataset) error {
		if _, ok := d.categories[id]; !ok {
			return apperrors.ErrNotFound
		}
		delete(d.categories, id)
		return nil
	})
}

// NameExists reports whether another category already uses name.
func (r *CategoryRepository) NameExists(_ context.Context, name, excludeID string) (bool, error) {
	var exists bool
	err := r.a.do(func(d *dataset) error {
		exists = categoryNameTaken(d, name, excludeID)
		return nil
	})
	return exists, err
}

// ListWithSubcategories returns every category with its subcategories, by name.
func (r *CategoryRepository) ListWithSubcategories(_ context.Context) ([]domain.Category, error) {
	out := make([]domain.Category, 0)
	err := r.a.do(func(d *dataset) error {
		for _, c := range d.categories {
			c.Subcategories = subcategoriesOf(d, c.ID)
			out = append(out, c)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Category) int { return cmp.Compare(a.Name, b.Name) })
	return out, err
}

// SubcategoryRepository implements repository.SubcategoryRepository in memory.
type SubcategoryRepository struct {
	a *access
}

// Create stores a subcategory; names are unique case-insensitively.
func (r *SubcategoryRepository) Create(_ context.Context, s *domain.Subcategory) error {
	return r.a.do(func(d *dataset) error {
		if subcategoryNameTaken(d, s.Name, "") {
			return domain.ErrDuplicateName("subcategory", s.Name)
		}
		d.subcategories[s.ID] = *s
		return nil
	})
}

// GetByID returns the subcategory or apperrors.ErrNotFound.
func (r *SubcategoryRepository) GetByID(_ context.Context, id string) (*domain.Subcategory, error) {
	var out *domain.Subcategory
	err := r.a.do(func(d *dataset) error {
		s, ok := d.subcategories[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

// Update replaces a subcategory, keeping names unique.
func (r *SubcategoryRepository) Update(_ context.Context, s *domain.Subcategory) error {
	return r.a.do(func(d *dataset) error {
		if _, ok := d.subcategories[s.ID]; !ok {
			return apperrors.ErrNotFound
		}
		if subcategoryNameTaken(d, s.Name, s.ID) {
			return domain.ErrDuplicateName("subcategory", s.Name)
		}
		d.subcategories[s.ID] = *s
		return nil
	})
}

// Delete removes a subcategory.
func (r *SubcategoryRepository) Delete(_ context.Context, id string) error {
	return r.a.do(func(d *dataset) error {
		if _, ok := d.subcategories[id]; !ok {
			return apperrors.ErrNotFound
		}
		delete(d.subcategories, id)
		return nil
	})
}

// NameExists reports whether another subcategory already uses name.
func (r *SubcategoryRepository) NameExists(_ context.Context, name, excludeID string) (bool, error) {
	var exists bool
	err := r.a.do(func(d *dataset) error {
		exists = subcategoryNameTaken(d, name, excludeID)
		return nil
	})
	return exists, err
}

// ListByCategory returns the subcategories of categoryID.
func (r *SubcategoryRepository) ListByCategory(_ context.Context, categoryID string) ([]domain.Subcategory, error) {
	var out []domain.Subcategory
	err := r.a.do(func(d *dataset) error {
		out = subcategoriesOf(d, categoryID)
		return nil
	})
	return out, err
}

// CountByCategory counts the subcategories of categoryID.
func (r *SubcategoryRepository) CountByCategory(_ context.Context, categoryID string) (int, error) {
	var n int
	err := r.a.do(func(d *dataset) error {
		n = len(subcategoriesOf(d, categoryID))
		return nil
	})
	return n, err
}

func subcategoriesOf(d *dataset, categoryID string) []domain.Subcategory {
	out := make([]domain.Subcategory, 0)
	for _, s := range d.subcategories {
		if s.CategoryID == categoryID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b domain.Subcategory) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

func categoryNameTaken(d *dataset, name, excludeID string) bool {
	for id, c := range d.categories {
		if id != excludeID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func subcategoryNameTaken(d *dataset, name, excludeID string) bool {
	for id, s := range d.subcategories {
		if id != excludeID && strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}
