// Package postgres implements the repositories on PostgreSQL through pgx.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
)

// Pool is what the unit of work needs from a connection pool.
type Pool interface {
	database.DBTX
	database.TxBeginner
}

// NewRepositories binds every repository to db, which is either the pool or
// an open transaction.
func NewRepositories(db database.DBTX) repository.Repositories {
	return repository.Repositories{
		Products:      NewProductRepository(db),
		Categories:    NewCategoryRepository(db),
		Subcategories: NewSubcategoryRepository(db),
		Carts:         NewCartRepository(db),
		Orders:        NewOrderRepository(db),
		Outbox:        NewOutboxRepository(db),
		Payments:      NewPaymentRepository(db),
		Users:         NewUserRepository(db),
	}
}

// UnitOfWork implements repository.UnitOfWork on a pgx pool.
type UnitOfWork struct {
	pool  Pool
	repos repository.Repositories
}

// NewUnitOfWork creates a unit of work over pool.
func NewUnitOfWork(pool Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool, repos: NewRepositories(pool)}
}

// Repositories returns repositories that run each statement on the pool.
func (u *UnitOfWork) Repositories() repository.Repositories {
	return u.repos
}

// WithinTx runs fn in a READ COMMITTED transaction. Row locks taken with
// FOR UPDATE serialize competing writers.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	return database.RunInTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}
