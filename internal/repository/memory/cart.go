package memory

import (
	"context"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CartRepository implements repository.CartRepository in memory.
type CartRepository struct {
	a *access
}

// Upsert returns the session's cart, creating an empty one on first use.
func (r *CartRepository) Upsert(_ context.Context, sessionID string, now time.Time) (*domain.Cart, error) {
	var out *domain.Cart
	err := r.a.do(func(d *dataset) error {
		if id, ok := d.sessions[sessionID]; ok {
			c := d.carts[id]
			out = c.Clone()
			return nil
		}
		c := domain.NewCart(sessionID, now)
		d.carts[c.ID] = *c.Clone()
		d.sessions[sessionID] = c.ID
		out = c
		return nil
	})
	return out, err
}

// GetBySessionForUpdate returns the session's cart or apperrors.ErrNotFound.
// The store lock already serializes callers.
func (r *CartRepository) GetBySessionForUpdate(_ context.Context, sessionID string) (*domain.Cart, error) {
	var out *domain.Cart
	err := r.a.do(func(d *dataset) error {
		id, ok := d.sessions[sessionID]
		if !ok {
			return apperrors.ErrNotFound
		}
		c := d.carts[id]
		out = c.Clone()
		return nil
	})
	return out, err
}

// Save replaces the stored cart and its lines.
func (r *CartRepository) Save(_ context.Context, c *domain.Cart) error {
	return r.a.do(func(d *dataset) error {
		if _, ok := d.carts[c.ID]; !ok {
			return apperrors.ErrNotFound
		}
		d.carts[c.ID] = *c.Clone()
		return nil
	})
}

// Delete removes a cart and its session mapping.
func (r *CartRepository) Delete(_ context.Context, id string) error {
	return r.a.do(func(d *dataset) error {
		c, ok := d.carts[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		delete(d.carts, id)
		delete(d.sessions, c.SessionID)
		return nil
	})
}
