package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	db database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO categories (id, name, slug, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Name, c.Slug, c.Description, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateName("category", c.Name)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRow(ctx, `
		SELECT id, name, slug, description, created_at, updated_at
		FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get category %s: %w", id, err)
	}
	return &c, nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE categories SET name = $2, slug = $3, description = $4, updated_at = $5
		WHERE id = $1`,
		c.ID, c.Name, c.Slug, c.Description, c.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateName("category", c.Name)
		}
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *CategoryRepository) NameExists(ctx context.Context, name, excludeID string) (bool, error) {
	return nameExists(ctx, r.db, "categories", name, excludeID)
}

// ListWithSubcategories loads categories and their subcategories in one
// round trip.
func (r *CategoryRepository) ListWithSubcategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.name, c.slug, c.description, c.created_at, c.updated_at,
			   s.id, s.name, s.slug, s.description, s.created_at, s.updated_at
		FROM categories c
		LEFT JOIN subcategories s ON s.category_id = c.id
		ORDER BY c.name, s.name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			c       domain.Category
			subID   *string
			subName *string
			subSlug *string
			subDesc *string
			subCAt  *time.Time
			subUAt  *time.Time
		)
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt,
			&subID, &subName, &subSlug, &subDesc, &subCAt, &subUAt,
		); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}

		i, ok := index[c.ID]
		if !ok {
			c.Subcategories = []domain.Subcategory{}
			categories = append(categories, c)
			i = len(categories) - 1
			index[c.ID] = i
		}
		if subID != nil {
			s := domain.Subcategory{
				ID:          *subID,
				CategoryID:  c.ID,
				Name:        deref(subName),
				Slug:        deref(subSlug),
				Description: deref(subDesc),
			}
			if subCAt != nil {
				s.CreatedAt = *subCAt
			}
			if subUAt != nil {
				s.UpdatedAt = *subUAt
			}
			categories[i].Subcategories = append(categories[i].Subcategories, s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return categories, nil
}

// SubcategoryRepository implements repository.SubcategoryRepository using PostgreSQL.
type SubcategoryRepository struct {
	db database.DBTX
}

// NewSubcategoryRepository creates a new PostgreSQL-backed subcategory repository.
func NewSubcategoryRepository(db database.DBTX) *SubcategoryRepository {
	return &SubcategoryRepository{db: db}
}

const subcategoryColumns = `id, category_id, name, slug, description, created_at, updated_at`

func scanSubcategory(row pgx.Row, s *domain.Subcategory) error {
	return row.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Slug, &s.Description, &s.CreatedAt, &s.UpdatedAt)
}

func (r *SubcategoryRepository) Create(ctx context.Context, s *domain.Subcategory) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO subcategories (`+subcategoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.CategoryID, s.Name, s.Slug, s.Description, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateName("subcategory", s.Name)
		}
		return fmt.Errorf("insert subcategory: %w", err)
	}
	return nil
}

func (r *SubcategoryRepository) GetByID(ctx context.Context, id string) (*domain.Subcategory, error) {
	var s domain.Subcategory
	err := scanSubcategory(r.db.QueryRow(ctx,
		`SELECT `+subcategoryColumns+` FROM subcategories WHERE id = $1`, id), &s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get subcategory %s: %w", id, err)
	}
	return &s, nil
}

func (r *SubcategoryRepository) Update(ctx context.Context, s *domain.Subcategory) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE subcategories SET name = $2, slug = $3, description = $4, updated_at = $5
		WHERE id = $1`,
		s.ID, s.Name, s.Slug, s.Description, s.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateName("subcategory", s.Name)
		}
		return fmt.Errorf("update subcategory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *SubcategoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM subcategories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *SubcategoryRepository) NameExists(ctx context.Context, name, excludeID string) (bool, error) {
	return nameExists(ctx, r.db, "subcategories", name, excludeID)
}

func (r *SubcategoryRepository) ListByCategory(ctx context.Context, categoryID string) ([]domain.Subcategory, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+subcategoryColumns+` FROM subcategories WHERE category_id = $1 ORDER BY name`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Subcategory, 0)
	for rows.Next() {
		var s domain.Subcategory
		if err := scanSubcategory(rows, &s); err != nil {
			return nil, fmt.Errorf("scan subcategory row: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subcategory rows: %w", err)
	}
	return subs, nil
}

func (r *SubcategoryRepository) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM subcategories WHERE category_id = $1`, categoryID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subcategories: %w", err)
	}
	return n, nil
}

// nameExists checks a case-insensitive name in table. table is always a
// constant of this package.
func nameExists(ctx context.Context, db database.DBTX, table, name, excludeID string) (bool, error) {
	var exists bool
	query := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE lower(name) = lower($1) AND ($2 = '' OR id::text <> $2))`, table)
	if err := db.QueryRow(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s name: %w", table, err)
	}
	return exists, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
