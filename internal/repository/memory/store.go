// Package memory implements the repositories in process memory. Units of
// work are serialized by a single mutex and applied copy-on-commit, which
// gives them the same all-or-nothing behaviour as the postgres backend.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

// dataset holds every table. Stored values are never mutated in place, so
// a shallow copy of the maps is an independent snapshot.
type dataset struct {
	products      map[string]domain.Product
	categories    map[string]domain.Category
	subcategories map[string]domain.Subcategory
	carts         map[string]domain.Cart
	sessions      map[string]string
	orders        map[string]domain.Order
	outbox        []domain.OutboxEvent
	payments      map[string]domain.PaymentResult
	users         map[string]domain.User
}

func newDataset() *dataset {
	return &dataset{
		products:      make(map[string]domain.Product),
		categories:    make(map[string]domain.Category),
		subcategories: make(map[string]domain.Subcategory),
		carts:         make(map[string]domain.Cart),
		sessions:      make(map[string]string),
		orders:        make(map[string]domain.Order),
		payments:      make(map[string]domain.PaymentResult),
		users:         make(map[string]domain.User),
	}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		products:      maps.Clone(d.products),
		categories:    maps.Clone(d.categories),
		subcategories: maps.Clone(d.subcategories),
		carts:         maps.Clone(d.carts),
		sessions:      maps.Clone(d.sessions),
		orders:        maps.Clone(d.orders),
		outbox:        append([]domain.OutboxEvent(nil), d.outbox...),
		payments:      maps.Clone(d.payments),
		users:         maps.Clone(d.users),
	}
}

// Store is an in-memory database implementing repository.UnitOfWork.
type Store struct {
	mu    sync.Mutex
	data  *dataset
	repos repository.Repositories
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{data: newDataset()}
	s.repos = newRepositories(&access{store: s})
	return s
}

// Repositories returns repositories whose calls each lock the store and
// commit on their own. They must not be used from inside WithinTx.
func (s *Store) Repositories() repository.Repositories {
	return s.repos
}

// WithinTx runs fn against a private copy of the data and installs the copy
// only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := s.data.clone()
	if err := fn(ctx, newRepositories(&access{store: s, tx: tx})); err != nil {
		return err
	}
	s.data = tx
	return nil
}

// Ping reports the store as always reachable.
func (s *Store) Ping(context.Context) error {
	return nil
}

// access routes a repository call either to an open transaction or to the
// live data under the store lock.
type access struct {
	store *Store
	tx    *dataset
}

func (a *access) do(fn func(d *dataset) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.data)
}

func newRepositories(a *access) repository.Repositories {
	return repository.Repositories{
		Products:      &ProductRepository{a: a},
		Categories:    &CategoryRepository{a: a},
		Subcategories: &SubcategoryRepository{a: a},
		Carts:         &CartRepository{a: a},
		Orders:        &OrderRepository{a: a},
		Outbox:        &OutboxRepository{a: a},
		Payments:      &PaymentRepository{a: a},
		Users:         &UserRepository{a: a},
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
