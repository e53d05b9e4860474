package repository

import (
	"context"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// Product sort fields.
var ProductSorting = pagination.Sorting{
	Allowed:      []string{"name", "price", "stock", "created_at"},
	DefaultOrder: pagination.Asc,
}

// Order sort fields. created_at is the default.
var OrderSorting = pagination.Sorting{
	Allowed:      []string{"created_at", "total_amount", "status"},
	DefaultOrder: pagination.Asc,
}

// ProductFilter defines filter criteria for listing products. Terms match
// when any of them is a case-insensitive substring of the name or
// description.
type ProductFilter struct {
	SubcategoryID *string
	CategoryID    *string
	MinPrice      *int64
	MaxPrice      *int64
	InStock       *bool
	Terms         []string
	Page          pagination.Params
}

// OrderFilter defines filter criteria for listing orders. From and To are
// inclusive.
type OrderFilter struct {
	Status *string
	From   *time.Time
	To     *time.Time
	Page   pagination.Params
}

// ProductRepository is the inventory ledger and catalog store.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error

	// GetByID returns apperrors.ErrNotFound when the product does not exist.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetForUpdate locks the rows of ids in id order and returns the ones
	// that exist, keyed by id.
	GetForUpdate(ctx context.Context, ids []string) (map[string]*domain.Product, error)

	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	ExistsByName(ctx context.Context, name string) (bool, error)

	// DecrementStock removes qty units and fails with apperrors.ErrConflict
	// if fewer than qty are available.
	DecrementStock(ctx context.Context, id string, qty int) error

	// IncrementStock returns qty units and reports whether the product still
	// exists.
	IncrementStock(ctx context.Context, id string, qty int) (bool, error)

	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	CountBySubcategory(ctx context.Context, subcategoryID string) (int, error)
}

// CategoryRepository persists categories.
type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id string) error
	// NameExists ignores excludeID so a rename to the same name passes.
	NameExists(ctx context.Context, name, excludeID string) (bool, error)
	// ListWithSubcategories returns every category ordered by name.
	ListWithSubcategories(ctx context.Context) ([]domain.Category, error)
}

// SubcategoryRepository persists subcategories.
type SubcategoryRepository interface {
	Create(ctx context.Context, s *domain.Subcategory) error
	GetByID(ctx context.Context, id string) (*domain.Subcategory, error)
	Update(ctx context.Context, s *domain.Subcategory) error
	Delete(ctx context.Context, id string) error
	NameExists(ctx context.Context, name, excludeID string) (bool, error)
	ListByCategory(ctx context.Context, categoryID string) ([]domain.Subcategory, error)
	CountByCategory(ctx context.Context, categoryID string) (int, error)
}

// CartRepository is the session-keyed cart store.
type CartRepository interface {
	// Upsert returns the locked cart of sessionID, creating an empty one
	// when none exists.
	Upsert(ctx context.Context, sessionID string, now time.Time) (*domain.Cart, error)

	// GetBySessionForUpdate returns apperrors.ErrNotFound when the session
	// has no cart.
	GetBySessionForUpdate(ctx context.Context, sessionID string) (*domain.Cart, error)

	// Save replaces the lines and total of an existing cart.
	Save(ctx context.Context, c *domain.Cart) error

	Delete(ctx context.Context, id string) error
}

// OrderRepository is the order store.
type OrderRepository interface {
	// Create inserts an order and its items.
	Create(ctx context.Context, o *domain.Order) error

	// GetByID returns the order with its items, or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetForUpdate is GetByID with the order row locked.
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)

	UpdateStatus(ctx context.Context, id, status string, at time.Time) error

	// List returns one page of orders, items included, and the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)
}

// OutboxRepository stores events until the relay publishes them.
type OutboxRepository interface {
	Add(ctx context.Context, e *domain.OutboxEvent) error

	// ClaimPending claims up to limit unsent events, oldest first, until
	// now+lease. Events another relay holds an unexpired claim on are
	// skipped.
	ClaimPending(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]domain.OutboxEvent, error)

	// MarkSent records a publish and drops the claim.
	MarkSent(ctx context.Context, id string, at time.Time) error

	// MarkFailed bumps the attempt counter and drops the claim; the event
	// stays pending.
	MarkFailed(ctx context.Context, id, reason string) error

	// Release drops the claims on ids without touching attempts.
	Release(ctx context.Context, ids []string) error
}

// PaymentRepository records processed payment notifications.
type PaymentRepository interface {
	// Claim records r under its correlation id and reports false when the
	// id was already claimed.
	Claim(ctx context.Context, r domain.PaymentResult, at time.Time) (bool, error)
}

// UserRepository persists back-office accounts.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
}

// Repositories bundles the repositories of one unit of work.
type Repositories struct {
	Products      ProductRepository
	Categories    CategoryRepository
	Subcategories SubcategoryRepository
	Carts         CartRepository
	Orders        OrderRepository
	Outbox        OutboxRepository
	Payments      PaymentRepository
	Users         UserRepository
}

// TxFunc runs inside a unit of work.
type TxFunc func(ctx context.Context, repos Repositories) error

// UnitOfWork gives access to the repositories either per call or inside an
// all-or-nothing transaction.
type UnitOfWork interface {
	// Repositories returns repositories whose calls each commit on their own.
	Repositories() Repositories

	// WithinTx commits every write made through repos when fn returns nil
	// and discards all of them otherwise.
	WithinTx(ctx context.Context, fn TxFunc) error
}
