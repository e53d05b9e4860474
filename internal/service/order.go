package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// OrderService implements the read side of the order store.
type OrderService struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(uow repository.UnitOfWork, logger *slog.Logger) *OrderService {
	return &OrderService{uow: uow, logger: logger}
}

// GetOrder retrieves an order by its ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.uow.Repositories().Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrOrderNotFound(id)
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return order, nil
}

// ListOrders returns one page of all orders.
func (s *OrderService) ListOrders(ctx context.Context, page pagination.Params) (pagination.Result[domain.Order], error) {
	return s.list(ctx, repository.OrderFilter{Page: page})
}

// ListOrdersByStatus returns one page of orders in status.
func (s *OrderService) ListOrdersByStatus(ctx context.Context, status string, page pagination.Params) (pagination.Result[domain.Order], error) {
	if !domain.IsValidStatus(status) {
		return pagination.Result[domain.Order]{}, apperrors.Validation(domain.CodeInvalidStatus,
			fmt.Sprintf("unknown order status %q", status))
	}
	return s.list(ctx, repository.OrderFilter{Status: &status, Page: page})
}

// ListOrdersByDateRange returns one page of orders created between start
// and end, both inclusive.
func (s *OrderService) ListOrdersByDateRange(ctx context.Context, start, end time.Time, page pagination.Params) (pagination.Result[domain.Order], error) {
	if start.After(end) {
		return pagination.Result[domain.Order]{}, apperrors.Validation(domain.CodeInvalidDateRange,
			"start must not be after end")
	}
	return s.list(ctx, repository.OrderFilter{From: &start, To: &end, Page: page})
}

func (s *OrderService) list(ctx context.Context, filter repository.OrderFilter) (pagination.Result[domain.Order], error) {
	filter.Page = filter.Page.Normalize(repository.OrderSorting)
	orders, total, err := s.uow.Repositories().Orders.List(ctx, filter)
	if err != nil {
		return pagination.Result[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return pagination.NewResult(orders, total, filter.Page), nil
}
