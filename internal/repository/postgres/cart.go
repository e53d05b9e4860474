package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	db database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(db database.DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// Upsert inserts an empty cart for sessionID unless one exists and returns
// the locked row with its items.
func (r *CartRepository) Upsert(ctx context.Context, sessionID string, now time.Time) (*domain.Cart, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO carts (id, session_id, total_amount, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (session_id) DO NOTHING`,
		uuid.NewString(), sessionID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert cart: %w", err)
	}
	return r.GetBySessionForUpdate(ctx, sessionID)
}

// GetBySessionForUpdate locks the cart row of sessionID and loads its items.
func (r *CartRepository) GetBySessionForUpdate(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var c domain.Cart
	err := r.db.QueryRow(ctx, `
		SELECT id, session_id, total_amount, created_at, updated_at
		FROM carts
		WHERE session_id = $1
		FOR UPDATE`, sessionID,
	).Scan(&c.ID, &c.SessionID, &c.TotalAmount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, cart_id, product_id, product_name, quantity, unit_price
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY position`, c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	c.Items = make([]domain.CartItem, 0)
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return &c, nil
}

// Save rewrites the items of c and its derived total.
func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE carts SET total_amount = $2, updated_at = $3 WHERE id = $1`,
		c.ID, c.TotalAmount, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}

	for pos, it := range c.Items {
		_, err := r.db.Exec(ctx, `
			INSERT INTO cart_items (id, cart_id, product_id, product_name, quantity, unit_price, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, c.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, pos,
		)
		if err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}
	return nil
}

// Delete removes a cart; its items cascade.
func (r *CartRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
