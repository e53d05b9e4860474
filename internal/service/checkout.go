package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// PaymentMode decides the status of a freshly placed order.
type PaymentMode string

const (
	// PaymentSync places orders as PAID.
	PaymentSync PaymentMode = "sync"
	// PaymentDeferred places orders as PENDING until a payment result
	// arrives. Stock is reserved at checkout either way.
	PaymentDeferred PaymentMode = "deferred"
)

// CheckoutInput holds the customer and shipping details of a checkout.
type CheckoutInput struct {
	SessionID       string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	ShippingCity    string
	ShippingZip     string
}

// CheckoutService converts a cart into an order.
type CheckoutService struct {
	uow      repository.UnitOfWork
	mode     PaymentMode
	outcomes *prometheus.CounterVec
	logger   *slog.Logger
	now      func() time.Time
}

// NewCheckoutService creates a checkout service. The outcome counter is
// registered on reg when reg is not nil.
func NewCheckoutService(uow repository.UnitOfWork, mode PaymentMode, reg prometheus.Registerer, logger *slog.Logger) *CheckoutService {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_total",
		Help: "Checkout attempts by result.",
	}, []string{"result"})
	if reg != nil {
		reg.MustRegister(outcomes)
	}
	if mode != PaymentDeferred {
		mode = PaymentSync
	}
	return &CheckoutService{
		uow:      uow,
		mode:     mode,
		outcomes: outcomes,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Checkout places the order for the cart of input.SessionID. Either the
// order exists, stock is decremented, the cart is gone and order.created is
// in the outbox, or nothing changed.
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (*domain.Order, error) {
	var order *domain.Order
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		order, err = s.placeOrder(ctx, repos, input)
		return err
	})
	s.outcomes.WithLabelValues(outcomeLabel(err)).Inc()
	if err != nil {
		s.logger.WarnContext(ctx, "checkout failed",
			slog.String("session_id", input.SessionID),
			slog.String("code", apperrors.CodeOf(err)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("checkout: %w", err)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("cart_id", order.CartID),
		slog.String("status", order.Status),
		slog.Int64("total_amount", order.TotalAmount),
	)
	return order, nil
}

func (s *CheckoutService) placeOrder(ctx context.Context, repos repository.Repositories, input CheckoutInput) (*domain.Order, error) {
	cart, err := repos.Carts.GetBySessionForUpdate(ctx, input.SessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrCartNotFound(input.SessionID)
		}
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart()
	}

	email := strings.TrimSpace(input.CustomerEmail)
	if !validator.IsEmail(email) {
		return nil, domain.ErrInvalidEmail(input.CustomerEmail)
	}

	products, err := repos.Products.GetForUpdate(ctx, cart.ProductIDs())
	if err != nil {
		return nil, err
	}
	for _, item := range cart.Items {
		p, ok := products[item.ProductID]
		if !ok {
			return nil, domain.ErrProductNotFound(item.ProductID)
		}
		if !p.InStock(item.Quantity) {
			return nil, domain.ErrInsufficientStock(p, item.Quantity)
		}
	}

	now := s.now()
	order := &domain.Order{
		ID:              uuid.NewString(),
		CartID:          cart.ID,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerEmail:   email,
		CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
		ShippingAddress: strings.TrimSpace(input.ShippingAddress),
		ShippingCity:    strings.TrimSpace(input.ShippingCity),
		ShippingZip:     strings.TrimSpace(input.ShippingZip),
		Status:          domain.OrderStatusPaid,
		Items:           make([]domain.OrderItem, 0, len(cart.Items)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if s.mode == PaymentDeferred {
		order.Status = domain.OrderStatusPending
	}

	for _, item := range cart.Items {
		if err := repos.Products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, domain.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.UnitPrice,
		})
	}
	order.TotalAmount = order.CalculateTotal()

	if err := repos.Orders.Create(ctx, order); err != nil {
		return nil, err
	}

	created, err := event.OrderCreated(ctx, order, now)
	if err != nil {
		return nil, err
	}
	if err := repos.Outbox.Add(ctx, created); err != nil {
		return nil, err
	}

	if err := repos.Carts.Delete(ctx, cart.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}
