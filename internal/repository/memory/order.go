package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// OrderRepository implements repository.OrderRepository in memory.
type OrderRepository struct {
	a *access
}

// Create stores an order with its items.
func (r *OrderRepository) Create(_ context.Context, o *domain.Order) error {
	return r.a.do(func(d *dataset) error {
		if _, ok := d.orders[o.ID]; ok {
			return apperrors.Conflict(fmt.Sprintf("order %s already exists", o.ID))
		}
		d.orders[o.ID] = copyOrder(*o)
		return nil
	})
}

// GetByID returns the order or apperrors.ErrNotFound.
func (r *OrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	var out *domain.Order
	err := r.a.do(func(d *dataset) error {
		o, ok := d.orders[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		o = copyOrder(o)
		out = &o
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; the store lock stands in for the row lock.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

// UpdateStatus sets the order status and its update time.
func (r *OrderRepository) UpdateStatus(_ context.Context, id, status string, at time.Time) error {
	return r.a.do(func(d *dataset) error {
		o, ok := d.orders[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		o.Status = status
		o.UpdatedAt = at
		d.orders[id] = o
		return nil
	})
}

// List returns one page of orders matching f, sorted as requested, and the
// total match count.
func (r *OrderRepository) List(_ context.Context, f repository.OrderFilter) ([]domain.Order, int, error) {
	var matched []domain.Order
	err := r.a.do(func(d *dataset) error {
		for _, o := range d.orders {
			if f.Status != nil && o.Status != *f.Status {
				continue
			}
			if f.From != nil && o.CreatedAt.Before(*f.From) {
				continue
			}
			if f.To != nil && o.CreatedAt.After(*f.To) {
				continue
			}
			matched = append(matched, copyOrder(o))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize(repository.OrderSorting)
	slices.SortFunc(matched, func(a, b domain.Order) int {
		var c int
		switch page.SortBy {
		case "total_amount":
			c = cmp.Compare(a.TotalAmount, b.TotalAmount)
		case "status":
			c = cmp.Compare(a.Status, b.Status)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
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

func copyOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	return o
}
