package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const productColumns = `id, name, description, price, stock, subcategory_id, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row pgx.Row, p *domain.Product, extra ...any) error {
	dest := append([]any{
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.SubcategoryID, &p.CreatedAt, &p.UpdatedAt,
	}, extra...)
	return row.Scan(dest...)
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.Stock,
		p.SubcategoryID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateName("product", p.Name)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p domain.Product
	if err := scanProduct(r.db.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &p, nil
}

// GetForUpdate locks the product rows in id order. A consistent lock order
// keeps two checkouts over the same products from deadlocking.
func (r *ProductRepository) GetForUpdate(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan locked product: %w", err)
		}
		out[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked products: %w", err)
	}
	return out, nil
}

// Update writes every mutable column of p.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, stock = $5, subcategory_id = $6, updated_at = $7
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.SubcategoryID, p.UpdatedAt,
	)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return domain.ErrDuplicateName("product", p.Name)
		case database.IsCheckViolation(err):
			return apperrors.BusinessRule(domain.CodeNegativeStock, "price and stock must not be negative")
		}
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a product.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ExistsByName reports whether a product with the given name exists,
// ignoring case.
func (r *ProductRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE lower(name) = lower($1))`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product name: %w", err)
	}
	return exists, nil
}

// DecrementStock subtracts qty only while enough stock remains.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	query := `
		UPDATE products
		SET stock = stock - $1, updated_at = now()
		WHERE id = $2 AND stock >= $1`

	tag, err := r.db.Exec(ctx, query, qty, id)
	if err != nil {
		return fmt.Errorf("decrement stock of %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict(fmt.Sprintf("stock of product %s changed concurrently", id))
	}
	return nil
}

// IncrementStock adds qty back to a product.
func (r *ProductRepository) IncrementStock(ctx context.Context, id string, qty int) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET stock = stock + $1, updated_at = now() WHERE id = $2`, qty, id,
	)
	if err != nil {
		return false, fmt.Errorf("increment stock of %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns products matching filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)
	next := func(v any) string {
		args = append(args, v)
		s := fmt.Sprintf("$%d", argIndex)
		argIndex++
		return s
	}

	if filter.SubcategoryID != nil {
		conditions = append(conditions, "p.subcategory_id = "+next(*filter.SubcategoryID))
	}
	if filter.CategoryID != nil {
		conditions = append(conditions, "s.category_id = "+next(*filter.CategoryID))
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, "p.price >= "+next(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, "p.price <= "+next(*filter.MaxPrice))
	}
	if filter.InStock != nil {
		if *filter.InStock {
			conditions = append(conditions, "p.stock > 0")
		} else {
			conditions = append(conditions, "p.stock = 0")
		}
	}
	if len(filter.Terms) > 0 {
		var ors []string
		for _, term := range filter.Terms {
			ph := next("%" + escapeLike(term) + "%")
			ors = append(ors, fmt.Sprintf("p.name ILIKE %s OR p.description ILIKE %s", ph, ph))
		}
		conditions = append(conditions, "("+strings.Join(ors, " OR ")+")")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page.Normalize(repository.ProductSorting)
	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.description, p.price, p.stock, p.subcategory_id, p.created_at, p.updated_at,
			   count(*) OVER() AS total_count
		FROM products p
		JOIN subcategories s ON s.id = p.subcategory_id
		%s
		ORDER BY p.%s %s, p.id
		LIMIT %s OFFSET %s`,
		whereClause, page.SortBy, strings.ToUpper(string(page.Order)), next(page.PerPage), next(page.Offset()),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var total int
	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p, &total); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, total, nil
}

// CountBySubcategory returns the number of products in a subcategory.
func (r *ProductRepository) CountBySubcategory(ctx context.Context, subcategoryID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM products WHERE subcategory_id = $1`, subcategoryID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products of subcategory: %w", err)
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
