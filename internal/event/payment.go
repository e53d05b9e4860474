package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Reconciler applies a payment result to its order.
type Reconciler interface {
	ApplyPaymentResult(ctx context.Context, r domain.PaymentResult) (*domain.ReconcileOutcome, error)
}

// PaymentResultData is the payload of payment.result.
type PaymentResultData struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// PaymentResultHandler returns the consumer handler for payment.result.
// Results that can never apply are marked permanent so the consumer dead
// letters them instead of retrying.
func PaymentResultHandler(rec Reconciler, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, ev *pkgkafka.Event) error {
		var data PaymentResultData
		if err := ev.UnmarshalData(&data); err != nil {
			return pkgkafka.Permanent(fmt.Errorf("decode payment result: %w", err))
		}
		if data.OrderID == "" {
			data.OrderID = ev.AggregateID
		}

		correlationID := ev.CorrelationID
		if correlationID == "" {
			correlationID = ev.EventID
		}

		outcome, err := rec.ApplyPaymentResult(ctx, domain.PaymentResult{
			OrderID:       data.OrderID,
			PaymentID:     data.PaymentID,
			Status:        data.Status,
			CorrelationID: correlationID,
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrNotFound) {
				return pkgkafka.Permanent(err)
			}
			return err
		}

		logger.InfoContext(ctx, "payment result consumed",
			slog.String("order_id", data.OrderID),
			slog.String("status", data.Status),
			slog.String("result", outcome.Result),
		)
		return nil
	}
}
