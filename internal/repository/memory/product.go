package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ProductRepository implements repository.ProductRepository in memory.
type ProductRepository struct {
	a *access
}

// Create stores a product; names are unique.
func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	return r.a.do(func(d *dataset) error {
		if _, ok := d.products[p.ID]; ok {
			return apperrors.Conflict(fmt.Sprintf("product %s already exists", p.ID))
		}
		if productNameTaken(d, p.Name, "") {
			return domain.ErrDuplicateName("product", p.Name)
		}
		d.products[p.ID] = *p
		return nil
	})
}

// GetByID returns the product or apperrors.ErrNotFound.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	var out *domain.Product
	err := r.a.do(func(d *dataset) error {
		p, ok := d.products[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

// GetForUpdate returns copies of the listed products keyed by id. Missing
// ids are left out.
func (r *ProductRepository) GetForUpdate(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	err := r.a.do(func(d *dataset) error {
		for _, id := range ids {
			if p, ok := d.products[id]; ok {
				out[id] = &p
			}
		}
		return nil
	})
	return out, err
}

// Update replaces a product after the stock, price and name checks.
func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	return r.a.do(func(d *dataset) error {
		if _, ok := d.products[p.ID]; !ok {
			return apperrors.ErrNotFound
		}
		if p.Stock < 0 || p.Price < 0 {
			return apperrors.BusinessRule(domain.CodeNegativeStock, "price and stock must not be negative")
		}
		if productNameTaken(d, p.Name, p.ID) {
			return domain.ErrDuplicateName("product", p.Name)
		}
		d.products[p.ID] = *p
		return nil
	})
}

// Delete removes a product.
func (r *ProductRepository) Delete(_ context.Context, id string) error {
	return r.a.do(func(d *dataset) error {
		if _, ok := d.products[id]; !ok {
			return apperrors.ErrNotFound
		}
		delete(d.products, id)
		return nil
	})
}

// ExistsByName reports whether a product is named name.
func (r *ProductRepository) ExistsByName(_ context.Context, name string) (bool, error) {
	var exists bool
	err := r.a.do(func(d *dataset) error {
		exists = productNameTaken(d, name, "")
		return nil
	})
	return exists, err
}

// DecrementStock takes qty units, failing with a conflict when fewer are
// left.
func (r *ProductRepository) DecrementStock(_ context.Context, id string, qty int) error {
	return r.a.do(func(d *dataset) error {
		p, ok := d.products[id]
		if !ok || p.Stock < qty {
			return apperrors.Conflict(fmt.Sprintf("stock of product %s changed concurrently", id))
		}
		p.Stock -= qty
		p.UpdatedAt = nowUTC()
		d.products[id] = p
		return nil
	})
}

// IncrementStock puts qty units back. It reports false for an unknown
// product.
func (r *ProductRepository) IncrementStock(_ context.Context, id string, qty int) (bool, error) {
	var found bool
	err := r.a.do(func(d *dataset) error {
		p, ok := d.products[id]
		if !ok {
			return nil
		}
		p.Stock += qty
		p.UpdatedAt = nowUTC()
		d.products[id] = p
		found = true
		return nil
	})
	return found, err
}

// List filters, orders and pages the catalog.
func (r *ProductRepository) List(_ context.Context, f repository.ProductFilter) ([]domain.Product, int, error) {
	var matched []domain.Product
	err := r.a.do(func(d *dataset) error {
		for _, p := range d.products {
			if matchesProduct(d, p, f) {
				matched = append(matched, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize(repository.ProductSorting)
	slices.SortFunc(matched, func(a, b domain.Product) int {
		var c int
		switch page.SortBy {
		case "price":
			c = cmp.Compare(a.Price, b.Price)
		case "stock":
			c = cmp.Compare(a.Stock, b.Stock)
		case "created_at":
			c = a.CreatedAt.Compare(b.CreatedAt)
		default:
			c = cmp.Compare(a.Name, b.Name)
		}
		if page.Order == pagination.Desc {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		return c
	})
	return pageOf(matched, page.Offset(), page.PerPage), len(matched), nil
}

// CountBySubcategory counts the products of subcategoryID.
func (r *ProductRepository) CountBySubcategory(_ context.Context, subcategoryID string) (int, error) {
	var n int
	err := r.a.do(func(d *dataset) error {
		for _, p := range d.products {
			if p.SubcategoryID == subcategoryID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func matchesProduct(d *dataset, p domain.Product, f repository.ProductFilter) bool {
	if f.SubcategoryID != nil && p.SubcategoryID != *f.SubcategoryID {
		return false
	}
	if f.CategoryID != nil && d.subcategories[p.SubcategoryID].CategoryID != *f.CategoryID {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.InStock != nil && (p.Stock > 0) != *f.InStock {
		return false
	}
	if len(f.Terms) == 0 {
		return true
	}
	name, desc := strings.ToLower(p.Name), strings.ToLower(p.Description)
	for _, t := range f.Terms {
		t = strings.ToLower(t)
		if strings.Contains(name, t) || strings.Contains(desc, t) {
			return true
		}
	}
	return false
}

func productNameTaken(d *dataset, name, excludeID string) bool {
	for id, p := range d.products {
		if id != excludeID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// pageOf returns the window [offset, offset+limit) of items, never nil.
func pageOf[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return slices.Clone(items[offset:end])
}
