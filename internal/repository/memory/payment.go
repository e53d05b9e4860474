package memory

import (
	"context"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

// PaymentRepository implements repository.PaymentRepository in memory.
type PaymentRepository struct {
	a *access
}

// Claim records the result under its correlation id. It returns false
// when that id was already claimed.
func (r *PaymentRepository) Claim(_ context.Context, p domain.PaymentResult, _ time.Time) (bool, error) {
	var claimed bool
	err := r.a.do(func(d *dataset) error {
		if _, ok := d.payments[p.CorrelationID]; ok {
			return nil
		}
		d.payments[p.CorrelationID] = p
		claimed = true
		return nil
	})
	return claimed, err
}
