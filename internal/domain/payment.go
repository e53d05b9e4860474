package domain

import "strings"

// Payment statuses reported by the gateway.
const (
	PaymentApproved  = "approved"
	PaymentRejected  = "rejected"
	PaymentCancelled = "cancelled"
)

// PaymentResult is one payment notification to reconcile against an order.
// CorrelationID is the idempotency key for the notification.
type PaymentResult struct {
	OrderID       string `json:"order_id"`
	PaymentID     string `json:"payment_id"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id"`
}

// NormalizePaymentStatus lowercases s and folds the "canceled" spelling.
func NormalizePaymentStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "canceled" {
		return PaymentCancelled
	}
	return s
}

// TargetStatus maps a payment status to the order status it settles to.
func TargetStatus(paymentStatus string) (string, bool) {
	switch paymentStatus {
	case PaymentApproved:
		return OrderStatusPaid, true
	case PaymentRejected, PaymentCancelled:
		return OrderStatusCancelled, true
	default:
		return "", false
	}
}

// Reconciliation outcomes.
const (
	ReconcileApplied   = "applied"
	ReconcileDuplicate = "duplicate"
	ReconcileIgnored   = "ignored"
)

// ReconcileOutcome reports what applying a PaymentResult did.
type ReconcileOutcome struct {
	Result string `json:"result"`
	Order  *Order `json:"order,omitempty"`
}
