package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/payment"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// PaymentService settles pending orders from payment results.
type PaymentService struct {
	uow     repository.UnitOfWork
	gateway payment.Gateway
	logger  *slog.Logger
	now     func() time.Time
}

// NewPaymentService creates a payment service that confirms webhook
// notifications through gateway. A nil gateway refuses webhooks; payment
// results from the broker are still applied.
func NewPaymentService(uow repository.UnitOfWork, gateway payment.Gateway, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		uow:     uow,
		gateway: gateway,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// HandleWebhook confirms n with the gateway and applies the result.
// Without a correlation id the payment id and status identify the
// delivery.
func (s *PaymentService) HandleWebhook(ctx context.Context, n payment.Notification, correlationID string) (*domain.ReconcileOutcome, error) {
	if s.gateway == nil {
		return nil, apperrors.ServiceUnavailable("payment gateway is not configured")
	}
	p, err := s.gateway.Lookup(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("lookup payment: %w", err)
	}

	orderID := p.OrderID
	if orderID == "" {
		orderID = n.OrderID
	}
	if orderID == "" {
		return nil, apperrors.InvalidInput("payment has no order reference")
	}
	if correlationID == "" {
		correlationID = "payment:" + p.ID + ":" + domain.NormalizePaymentStatus(p.Status)
	}

	return s.ApplyPaymentResult(ctx, domain.PaymentResult{
		OrderID:       orderID,
		PaymentID:     p.ID,
		Status:        p.Status,
		CorrelationID: correlationID,
	})
}

// ApplyPaymentResult moves a pending order to PAID or CANCELLED. A repeated
// correlation id and an order that already settled both leave state
// untouched. An order reference that is not a UUID matches no order.
func (s *PaymentService) ApplyPaymentResult(ctx context.Context, r domain.PaymentResult) (*domain.ReconcileOutcome, error) {
	if r.CorrelationID == "" {
		return nil, apperrors.InvalidInput("correlation id is required")
	}
	status := domain.NormalizePaymentStatus(r.Status)
	target, ok := domain.TargetStatus(status)
	if !ok {
		return nil, apperrors.Validation(domain.CodeInvalidStatus, fmt.Sprintf("unknown payment status %q", r.Status))
	}
	r.Status = status
	if _, err := uuid.Parse(r.OrderID); err != nil {
		return nil, domain.ErrOrderNotFound(r.OrderID)
	}

	var outcome *domain.ReconcileOutcome
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		now := s.now()

		claimed, err := repos.Payments.Claim(ctx, r, now)
		if err != nil {
			return err
		}
		if !claimed {
			outcome = &domain.ReconcileOutcome{Result: domain.ReconcileDuplicate}
			return nil
		}

		order, err := repos.Orders.GetForUpdate(ctx, r.OrderID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return domain.ErrOrderNotFound(r.OrderID)
			}
			return err
		}
		if !order.CanTransitionTo(target) {
			outcome = &domain.ReconcileOutcome{Result: domain.ReconcileIgnored, Order: order}
			return nil
		}

		if target == domain.OrderStatusCancelled {
			for _, item := range order.Items {
				if _, err := repos.Products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		if err := repos.Orders.UpdateStatus(ctx, order.ID, target, now); err != nil {
			return err
		}
		oldStatus := order.Status
		order.Status = target
		order.UpdatedAt = now

		changed, err := event.OrderStatusChanged(ctx, order, oldStatus, r.PaymentID, now)
		if err != nil {
			return err
		}
		if err := repos.Outbox.Add(ctx, changed); err != nil {
			return err
		}

		outcome = &domain.ReconcileOutcome{Result: domain.ReconcileApplied, Order: order}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply payment result: %w", err)
	}

	s.logger.InfoContext(ctx, "payment result applied",
		slog.String("order_id", r.OrderID),
		slog.String("payment_id", r.PaymentID),
		slog.String("status", r.Status),
		slog.String("result", outcome.Result),
	)
	return outcome, nil
}
