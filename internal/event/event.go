// Package event builds the storefront's domain events, relays them from the
// transactional outbox to Kafka and consumes payment results.
package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Event types.
const (
	TypeOrderCreated   = "order.created"
	TypeOrderPaid      = "order.paid"
	TypeOrderCancelled = "order.cancelled"
	TypePaymentResult  = "payment.result"
)

// Kafka topics.
var (
	TopicOrderCreated   = pkgkafka.Topic("order", "created")
	TopicOrderPaid      = pkgkafka.Topic("order", "paid")
	TopicOrderCancelled = pkgkafka.Topic("order", "cancelled")
	TopicPaymentResult  = pkgkafka.Topic("payment", "result")
)

const (
	AggregateTypeOrder = "order"
	Source             = "storefront"
)

// OrderCreatedData is the payload of order.created.
type OrderCreatedData struct {
	ID            string          `json:"id"`
	CartID        string          `json:"cart_id"`
	CustomerEmail string          `json:"customer_email"`
	Status        string          `json:"status"`
	TotalAmount   int64           `json:"total_amount"`
	Items         []OrderItemData `json:"items"`
}

// OrderItemData is one line of an order event.
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// OrderStatusData is the payload of order.paid and order.cancelled.
type OrderStatusData struct {
	OrderID   string `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	PaymentID string `json:"payment_id,omitempty"`
}

// OrderCreated builds the outbox row announcing a new order.
func OrderCreated(ctx context.Context, o *domain.Order, now time.Time) (*domain.OutboxEvent, error) {
	data := OrderCreatedData{
		ID:            o.ID,
		CartID:        o.CartID,
		CustomerEmail: o.CustomerEmail,
		Status:        o.Status,
		TotalAmount:   o.TotalAmount,
		Items:         make([]OrderItemData, len(o.Items)),
	}
	for i, it := range o.Items {
		data.Items[i] = OrderItemData{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price}
	}
	return newOutboxEvent(ctx, TopicOrderCreated, TypeOrderCreated, o.ID, data, now)
}

// OrderStatusChanged builds the outbox row for a payment-driven transition.
func OrderStatusChanged(ctx context.Context, o *domain.Order, oldStatus, paymentID string, now time.Time) (*domain.OutboxEvent, error) {
	topic, eventType := TopicOrderPaid, TypeOrderPaid
	if o.Status == domain.OrderStatusCancelled {
		topic, eventType = TopicOrderCancelled, TypeOrderCancelled
	}
	data := OrderStatusData{OrderID: o.ID, OldStatus: oldStatus, NewStatus: o.Status, PaymentID: paymentID}
	return newOutboxEvent(ctx, topic, eventType, o.ID, data, now)
}

func newOutboxEvent(ctx context.Context, topic, eventType, aggregateID string, data any, now time.Time) (*domain.OutboxEvent, error) {
	ev, err := pkgkafka.NewEvent(eventType, aggregateID, AggregateTypeOrder, Source, data)
	if err != nil {
		return nil, err
	}
	ev.Timestamp = now
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}
	if sid := logger.SessionIDFromContext(ctx); sid != "" {
		ev.WithMetadata("session_id", sid)
	}

	payload, err := ev.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return &domain.OutboxEvent{
		ID:          uuid.NewString(),
		Topic:       topic,
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   now,
	}, nil
}
