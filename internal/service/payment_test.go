package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/payment"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Lookup(ctx context.Context, n payment.Notification) (*payment.Payment, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

// placePending checks out qty units of p-1 in deferred mode.
func placePending(t *testing.T, f *checkoutFixture, session string, qty int) *domain.Order {
	t.Helper()
	f.addToCart(t, session, "p-1", qty)
	order, err := f.checkout.Checkout(context.Background(), checkoutInput(session))
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, order.Status)
	return order
}

func newPaymentService(f *checkoutFixture) *PaymentService {
	svc := NewPaymentService(f.store, payment.StaticGateway{}, newTestLogger())
	svc.now = func() time.Time { return fixedNow.Add(time.Minute) }
	return svc
}

func TestPaymentService_ApplyPaymentResult_ApprovedMarksPaid(t *testing.T) {
	f := newCheckoutFixture(t, PaymentDeferred)
	order := placePending(t, f, "sess-1", 2)
	svc := newPaymentService(f)

	outcome, err := svc.ApplyPaymentResult(context.Background(), domain.PaymentResult{
		OrderID: order.ID, PaymentID: "pay-1", Status: "APPROVED", CorrelationID: "corr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReconcileApplied, outcome.Result)
	assert.Equal(t, domain.OrderStatusPaid, outcome.Order.Status)

	stored, err := f.store.Repositories().Orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, stored.Status)
	assert.Equal(t, 3, stockOf(t, f.store, "p-1"))

	events := pendingEvents(t, f.store)
	require.Len(t, events, 2)
	assert.Equal(t, event.TopicOrderPaid, events[1].Topic)

	var env struct {
		Data event.OrderStatusData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(events[1].Payload, &env))
	assert.Equal(t, domain.OrderStatusPending, env.Data.OldStatus)
	assert.Equal(t, domain.OrderStatusPaid, env.Data.NewStatus)
	assert.Equal(t, "pay-1", env.Data.PaymentID)
}

func TestPaymentService_ApplyPaymentResult_RejectedCancelsAndRestocks(t *testing.T) {
	for _, status := range []string{"rejected", "cancelled", "canceled"} {
		t.Run(status, func(t *testing.T) {
			f := newCheckoutFixture(t, PaymentDeferred)
			order := placePending(t, f, "sess-1", 2)
			require.Equal(t, 3, stockOf(t, f.store, "p-1"))

			outcome, err := newPaymentService(f).ApplyPaymentResult(context.Background(), domain.PaymentResult{
				OrderID: order.ID, Status: status, CorrelationID: "corr-1",
			})
			require.NoError(t, err)
			assert.Equal(t, domain.ReconcileApplied, outcome.Result)
			assert.Equal(t, domain.OrderStatusCancelled, outcome.Order.Status)
			assert.Equal(t, 5, stockOf(t, f.store, "p-1"))

			events := pendingEvents(t, f.store)
			assert.Equal(t, event.TopicOrderCancelled, events[len(events)-1].Topic)
		})
	}
}

func TestPaymentService_ApplyPaymentResult_RestockSkipsDeletedProducts(t *testing.T) {
	f := newCheckoutFixture(t, PaymentDeferred)
	order := placePending(t, f, "sess-1", 2)
	require.NoError(t, f.store.Repositories().Products.Delete(context.Background(), "p-1"))

	outcome, err := newPaymentService(f).ApplyPaymentResult(context.Background(), domain.PaymentResult{
		OrderID: order.ID, Status: "rejected", CorrelationID: "corr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, outcome.Order.Status)
}

func TestPaymentService_ApplyPaymentResult_DuplicateDeliveryIsNoOp(t *testing.T) {
	f := newCheckoutFixture(t, PaymentDeferred)
	order := placePending(t, f, "sess-1", 2)
	svc := newPaymentService(f)
	result := domain.PaymentResult{OrderID: order.ID, Status: "rejected", CorrelationID: "corr-1"}

	_, err := svc.ApplyPaymentResult(context.Background(), result)
	require.NoError(t, err)
	outcome, err := svc.ApplyPaymentResult(context.Background(), result)
	require.NoError(t, err)

	assert.Equal(t, domain.ReconcileDuplicate, outcome.Result)
	assert.Equal(t, 5, stockOf(t, f.store, "p-1"))
	assert.Len(t, pendingEvents(t, f.store), 2)
}

func TestPaymentService_ApplyPaymentResult_SettledOrderIsIgnored(t *testing.T) {
	f := newCheckoutFixture(t, PaymentSync)
	f.addToCart(t, "sess-1", "p-1", 2)
	order, err := f.checkout.Checkout(context.Background(), checkoutInput("sess-1"))
	require.NoError(t, err)

	outcome, err := newPaymentService(f).ApplyPaymentResult(context.Background(), domain.PaymentResult{
		OrderID: order.ID, Status: "rejected", CorrelationID: "corr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReconcileIgnored, outcome.Result)
	assert.Equal(t, domain.OrderStatusPaid, outcome.Order.Status)
	assert.Equal(t, 3, stockOf(t, f.store, "p-1"))
	assert.Len(t, pendingEvents(t, f.store), 1)
}

const unknownOrderID = "3f1e2d3c-4b5a-4697-8877-665544332211"

func TestPaymentService_ApplyPaymentResult_NonUUIDReferenceClaimsNothing(t *testing.T) {
	payments := new(mockPaymentRepository)
	svc := NewPaymentService(&mockUnitOfWork{repos: repository.Repositories{Payments: payments}},
		payment.StaticGateway{}, newTestLogger())

	_, err := svc.ApplyPaymentResult(context.Background(), domain.PaymentResult{
		OrderID: "ref-2024-77", Status: "approved", CorrelationID: "corr-1",
	})
	assert.Equal(t, domain.CodeOrderNotFound, apperrors.CodeOf(err))
	payments.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_ApplyPaymentResult_Errors(t *testing.T) {
	tests := []struct {
		name   string
		result domain.PaymentResult
		code   string
		kind   error
	}{
		{"unknown status", domain.PaymentResult{OrderID: "o-1", Status: "pending", CorrelationID: "c"}, domain.CodeInvalidStatus, apperrors.ErrValidation},
		{"missing correlation", domain.PaymentResult{OrderID: "o-1", Status: "approved"}, "INVALID_INPUT", apperrors.ErrValidation},
		{"unknown order", domain.PaymentResult{OrderID: unknownOrderID, Status: "approved", CorrelationID: "c"}, domain.CodeOrderNotFound, apperrors.ErrNotFound},
		{"order reference not a uuid", domain.PaymentResult{OrderID: "ref-2024-77", Status: "approved", CorrelationID: "c"}, domain.CodeOrderNotFound, apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t, PaymentDeferred)

			_, err := newPaymentService(f).ApplyPaymentResult(context.Background(), tt.result)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestPaymentService_ApplyPaymentResult_UnknownOrderReleasesClaim(t *testing.T) {
	f := newCheckoutFixture(t, PaymentDeferred)
	svc := newPaymentService(f)

	_, err := svc.ApplyPaymentResult(context.Background(), domain.PaymentResult{
		OrderID: unknownOrderID, Status: "approved", CorrelationID: "corr-1",
	})
	require.Error(t, err)

	claimed, err := f.store.Repositories().Payments.Claim(context.Background(),
		domain.PaymentResult{CorrelationID: "corr-1"}, fixedNow)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestPaymentService_ApplyPaymentResult_ClaimFailure(t *testing.T) {
	payments := new(mockPaymentRepository)
	orders := new(mockOrderRepository)
	boom := errors.New("connection reset")
	payments.On("Claim", mock.Anything, mock.Anything, mock.Anything).Return(false, boom)

	svc := NewPaymentService(&mockUnitOfWork{repos: repository.Repositories{Payments: payments, Orders: orders}},
		payment.StaticGateway{}, newTestLogger())

	_, err := svc.ApplyPaymentResult(context.Background(), domain.PaymentResult{
		OrderID: unknownOrderID, Status: "approved", CorrelationID: "corr-1",
	})
	assert.ErrorIs(t, err, boom)
	orders.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything)
	payments.AssertExpectations(t)
}

func TestPaymentService_HandleWebhook_UsesGatewayAnswer(t *testing.T) {
	f := newCheckoutFixture(t, PaymentDeferred)
	order := placePending(t, f, "sess-1", 1)

	gw := new(mockGateway)
	gw.On("Lookup", mock.Anything, payment.Notification{PaymentID: "pay-9", Status: "approved"}).
		Return(&payment.Payment{ID: "pay-9", Status: "rejected", OrderID: order.ID}, nil)
	svc := NewPaymentService(f.store, gw, newTestLogger())

	outcome, err := svc.HandleWebhook(context.Background(), payment.Notification{PaymentID: "pay-9", Status: "approved"}, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, outcome.Order.Status)
	gw.AssertExpectations(t)

	claimed, err := f.store.Repositories().Payments.Claim(context.Background(),
		domain.PaymentResult{CorrelationID: "payment:pay-9:rejected"}, fixedNow)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestPaymentService_HandleWebhook_Errors(t *testing.T) {
	f := newCheckoutFixture(t, PaymentDeferred)

	gw := new(mockGateway)
	gw.On("Lookup", mock.Anything, payment.Notification{PaymentID: "down"}).
		Return(nil, apperrors.ServiceUnavailable("payment gateway: circuit open"))
	gw.On("Lookup", mock.Anything, payment.Notification{PaymentID: "orphan"}).
		Return(&payment.Payment{ID: "orphan", Status: "approved"}, nil)
	svc := NewPaymentService(f.store, gw, newTestLogger())

	_, err := svc.HandleWebhook(context.Background(), payment.Notification{PaymentID: "down"}, "k-1")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)

	_, err = svc.HandleWebhook(context.Background(), payment.Notification{PaymentID: "orphan"}, "k-2")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPaymentService_HandleWebhook_WithoutGatewayRefuses(t *testing.T) {
	f := newCheckoutFixture(t, PaymentDeferred)
	order := placePending(t, f, "sess-1", 1)
	svc := NewPaymentService(f.store, nil, newTestLogger())

	_, err := svc.HandleWebhook(context.Background(),
		payment.Notification{PaymentID: "made-up", Status: "approved", OrderID: order.ID}, "")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)

	got, err := f.store.Repositories().Orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)

	// Broker results do not depend on the gateway.
	outcome, err := svc.ApplyPaymentResult(context.Background(), domain.PaymentResult{
		OrderID: order.ID, Status: "approved", CorrelationID: "evt-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReconcileApplied, outcome.Result)
}

func TestPaymentService_HandleWebhook_StaticGatewayTrustsNotification(t *testing.T) {
	f := newCheckoutFixture(t, PaymentDeferred)
	order := placePending(t, f, "sess-1", 1)

	outcome, err := newPaymentService(f).HandleWebhook(context.Background(),
		payment.Notification{PaymentID: "pay-1", Status: "approved", OrderID: order.ID}, "idem-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReconcileApplied, outcome.Result)
	assert.Equal(t, domain.OrderStatusPaid, outcome.Order.Status)
}
