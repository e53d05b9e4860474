package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/memory"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func strPtr(s string) *string { return &s }

func int64Ptr(i int64) *int64 { return &i }

func intPtr(i int) *int { return &i }

func seedCatalog(t *testing.T, s *memory.Store) {
	t.Helper()
	ctx := context.Background()
	repos := s.Repositories()
	require.NoError(t, repos.Categories.Create(ctx, &domain.Category{
		ID: "cat-1", Name: "Home", Slug: "home", CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}))
	require.NoError(t, repos.Subcategories.Create(ctx, &domain.Subcategory{
		ID: "sub-1", CategoryID: "cat-1", Name: "Lighting", Slug: "lighting", CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}))
}

func seedProduct(t *testing.T, s *memory.Store, id, name string, price int64, stock int) {
	t.Helper()
	require.NoError(t, s.Repositories().Products.Create(context.Background(), &domain.Product{
		ID: id, Name: name, Price: price, Stock: stock, SubcategoryID: "sub-1", CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}))
}

func stockOf(t *testing.T, s *memory.Store, id string) int {
	t.Helper()
	p, err := s.Repositories().Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func pendingEvents(t *testing.T, s *memory.Store) []domain.OutboxEvent {
	t.Helper()
	events, err := s.Repositories().Outbox.ClaimPending(context.Background(), 100, time.Now(), 0)
	require.NoError(t, err)
	return events
}

// --- Mocks ---

type mockUnitOfWork struct {
	repos repository.Repositories
}

func (u *mockUnitOfWork) Repositories() repository.Repositories { return u.repos }

func (u *mockUnitOfWork) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	return fn(ctx, u.repos)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	args := m.Called(ctx, id, status, at)
	return args.Error(0)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

type mockPaymentRepository struct {
	mock.Mock
}

func (m *mockPaymentRepository) Claim(ctx context.Context, r domain.PaymentResult, at time.Time) (bool, error) {
	args := m.Called(ctx, r, at)
	return args.Bool(0), args.Error(1)
}

// failingOutbox rejects every Add.
type failingOutbox struct {
	repository.OutboxRepository
	err error
}

func (f failingOutbox) Add(context.Context, *domain.OutboxEvent) error { return f.err }

// faultyStore injects failingOutbox into every unit of work.
type faultyStore struct {
	*memory.Store
	err error
}

func (f faultyStore) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	return f.Store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		repos.Outbox = failingOutbox{OutboxRepository: repos.Outbox, err: f.err}
		return fn(ctx, repos)
	})
}
