package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const orderColumns = `id, cart_id, customer_name, customer_email, customer_phone,
	shipping_address, shipping_city, shipping_zip, total_amount, status, created_at, updated_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func scanOrder(row pgx.Row, o *domain.Order, extra ...any) error {
	dest := append([]any{
		&o.ID, &o.CartID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress, &o.ShippingCity, &o.ShippingZip, &o.TotalAmount, &o.Status,
		&o.CreatedAt, &o.UpdatedAt,
	}, extra...)
	return row.Scan(dest...)
}

// Create inserts the order row and its items. It must run inside the
// caller's transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.CartID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.ShippingAddress, o.ShippingCity, o.ShippingZip, o.TotalAmount, o.Status,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for pos, item := range o.Items {
		if _, err := r.db.Exec(ctx, itemQuery,
			item.ID, o.ID, item.ProductID, item.ProductName, item.Quantity, item.Price, pos,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an order by its ID with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate retrieves and locks an order.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, id, true)
}

func (r *OrderRepository) get(ctx context.Context, id string, lock bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var o domain.Order
	if err := scanOrder(r.db.QueryRow(ctx, query, id), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}

	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	return &o, nil
}

// UpdateStatus sets the status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List returns orders matching the given filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filter.To)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page.Normalize(repository.OrderSorting)
	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY %s %s, id
		LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, page.SortBy, strings.ToUpper(string(page.Order)), argIndex, argIndex+1,
	)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var total int
	orders := make([]domain.Order, 0)
	for rows.Next() {
		var o domain.Order
		if err := scanOrder(rows, &o, &total); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	if len(orders) > 0 {
		ids := make([]string, len(orders))
		for i := range orders {
			ids[i] = orders[i].ID
		}
		items, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range orders {
			orders[i].Items = items[orders[i].ID]
			if orders[i].Items == nil {
				orders[i].Items = []domain.OrderItem{}
			}
		}
	}
	return orders, total, nil
}

// loadItems batch-loads the items of orderIDs grouped by order id.
func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return byOrder, nil
}
