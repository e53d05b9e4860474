package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
)

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	db database.DBTX
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(db database.DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Claim inserts the notification keyed by its correlation id. A second
// claim of the same id affects no rows.
func (r *PaymentRepository) Claim(ctx context.Context, p domain.PaymentResult, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO payment_notifications (correlation_id, order_id, payment_id, status, received_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (correlation_id) DO NOTHING`,
		p.CorrelationID, p.OrderID, p.PaymentID, p.Status, at,
	)
	if err != nil {
		return false, fmt.Errorf("claim payment notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
