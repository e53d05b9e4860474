package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/memory"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

type checkoutFixture struct {
	store    *memory.Store
	carts    *CartService
	checkout *CheckoutService
	registry *prometheus.Registry
}

func newCheckoutFixture(t *testing.T, mode PaymentMode) *checkoutFixture {
	t.Helper()
	store := memory.NewStore()
	seedCatalog(t, store)
	seedProduct(t, store, "p-1", "Lamp", 1000, 5)

	reg := prometheus.NewRegistry()
	f := &checkoutFixture{
		store:    store,
		carts:    NewCartService(store, newTestLogger()),
		checkout: NewCheckoutService(store, mode, reg, newTestLogger()),
		registry: reg,
	}
	f.checkout.now = func() time.Time { return fixedNow }
	return f
}

func (f *checkoutFixture) addToCart(t *testing.T, session, productID string, qty int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), AddItemInput{SessionID: session, ProductID: productID, Quantity: qty})
	require.NoError(t, err)
}

func checkoutInput(session string) CheckoutInput {
	return CheckoutInput{
		SessionID:       session,
		CustomerName:    "Ana Lima",
		CustomerEmail:   "ana@example.com",
		CustomerPhone:   "+55 11 99999-0000",
		ShippingAddress: "Rua A, 1",
		ShippingCity:    "Sao Paulo",
		ShippingZip:     "01000-000",
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "storefront_checkout_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelValue(m, "result") == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestCheckoutService_Checkout_PlacesPaidOrder(t *testing.T) {
	f := newCheckoutFixture(t, PaymentSync)
	f.addToCart(t, "sess-1", "p-1", 2)

	order, err := f.checkout.Checkout(context.Background(), checkoutInput("sess-1"))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, int64(2000), order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Lamp", order.Items[0].ProductName)
	assert.Equal(t, int64(1000), order.Items[0].Price)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, fixedNow, order.CreatedAt)

	assert.Equal(t, 3, stockOf(t, f.store, "p-1"))

	_, err = f.store.Repositories().Carts.GetBySessionForUpdate(context.Background(), "sess-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	stored, err := f.store.Repositories().Orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.TotalAmount, stored.TotalAmount)

	events := pendingEvents(t, f.store)
	require.Len(t, events, 1)
	assert.Equal(t, event.TopicOrderCreated, events[0].Topic)
	assert.Equal(t, order.ID, events[0].AggregateID)

	assert.Equal(t, float64(1), counterValue(t, f.registry, "success"))
}

func TestCheckoutService_Checkout_UsesCartPriceSnapshot(t *testing.T) {
	f := newCheckoutFixture(t, PaymentSync)
	f.addToCart(t, "sess-1", "p-1", 1)

	p, err := f.store.Repositories().Products.GetByID(context.Background(), "p-1")
	require.NoError(t, err)
	p.Price = 1500
	require.NoError(t, f.store.Repositories().Products.Update(context.Background(), p))

	order, err := f.checkout.Checkout(context.Background(), checkoutInput("sess-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), order.Items[0].Price)
	assert.Equal(t, int64(1000), order.TotalAmount)
}

func TestCheckoutService_Checkout_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *checkoutFixture)
		input   func() CheckoutInput
		code    string
		kind    error
		counter string
	}{
		{
			name:    "no cart",
			setup:   func(*testing.T, *checkoutFixture) {},
			input:   func() CheckoutInput { return checkoutInput("sess-1") },
			code:    domain.CodeCartNotFound,
			kind:    apperrors.ErrNotFound,
			counter: "cart_not_found",
		},
		{
			name: "empty cart",
			setup: func(t *testing.T, f *checkoutFixture) {
				_, err := f.carts.GetOrCreate(context.Background(), "sess-1")
				require.NoError(t, err)
			},
			input:   func() CheckoutInput { return checkoutInput("sess-1") },
			code:    domain.CodeEmptyCart,
			kind:    apperrors.ErrBusinessRule,
			counter: "empty_cart",
		},
		{
			name:  "invalid email",
			setup: func(t *testing.T, f *checkoutFixture) { f.addToCart(t, "sess-1", "p-1", 2) },
			input: func() CheckoutInput {
				in := checkoutInput("sess-1")
				in.CustomerEmail = "not-an-email"
				return in
			},
			code:    domain.CodeInvalidEmail,
			kind:    apperrors.ErrValidation,
			counter: "invalid_email",
		},
		{
			name: "stock dropped after add",
			setup: func(t *testing.T, f *checkoutFixture) {
				f.addToCart(t, "sess-1", "p-1", 4)
				require.NoError(t, f.store.Repositories().Products.DecrementStock(context.Background(), "p-1", 2))
			},
			input:   func() CheckoutInput { return checkoutInput("sess-1") },
			code:    domain.CodeInsufficientStock,
			kind:    apperrors.ErrBusinessRule,
			counter: "insufficient_stock",
		},
		{
			name: "product deleted after add",
			setup: func(t *testing.T, f *checkoutFixture) {
				f.addToCart(t, "sess-1", "p-1", 1)
				require.NoError(t, f.store.Repositories().Products.Delete(context.Background(), "p-1"))
			},
			input:   func() CheckoutInput { return checkoutInput("sess-1") },
			code:    domain.CodeProductNotFound,
			kind:    apperrors.ErrNotFound,
			counter: "product_not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t, PaymentSync)
			tt.setup(t, f)

			order, err := f.checkout.Checkout(context.Background(), tt.input())
			require.Error(t, err)
			assert.Nil(t, order)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
			assert.Empty(t, pendingEvents(t, f.store))
			assert.Equal(t, float64(1), testutil.ToFloat64(f.checkout.outcomes.WithLabelValues(tt.counter)))
		})
	}
}

func TestCheckoutService_Checkout_InvalidEmailKeepsCart(t *testing.T) {
	f := newCheckoutFixture(t, PaymentSync)
	f.addToCart(t, "sess-1", "p-1", 2)

	in := checkoutInput("sess-1")
	in.CustomerEmail = "not-an-email"
	_, err := f.checkout.Checkout(context.Background(), in)
	require.Error(t, err)

	cart, err := f.store.Repositories().Carts.GetBySessionForUpdate(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 5, stockOf(t, f.store, "p-1"))
}

func TestCheckoutService_Checkout_LaterFailureRollsBackEverything(t *testing.T) {
	store := memory.NewStore()
	seedCatalog(t, store)
	seedProduct(t, store, "p-1", "Lamp", 1000, 5)
	seedProduct(t, store, "p-2", "Shade", 250, 3)

	carts := NewCartService(store, newTestLogger())
	for _, line := range []AddItemInput{
		{SessionID: "sess-1", ProductID: "p-1", Quantity: 2},
		{SessionID: "sess-1", ProductID: "p-2", Quantity: 1},
	} {
		_, err := carts.AddItem(context.Background(), line)
		require.NoError(t, err)
	}

	boom := errors.New("outbox unavailable")
	svc := NewCheckoutService(faultyStore{Store: store, err: boom}, PaymentSync, nil, newTestLogger())

	_, err := svc.Checkout(context.Background(), checkoutInput("sess-1"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "error", outcomeLabel(err))

	assert.Equal(t, 5, stockOf(t, store, "p-1"))
	assert.Equal(t, 3, stockOf(t, store, "p-2"))
	cart, err := store.Repositories().Carts.GetBySessionForUpdate(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)

	orders, total, err := store.Repositories().Orders.List(context.Background(), repository.OrderFilter{
		Page: pagination.DefaultParams().Normalize(repository.OrderSorting),
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)
}

func TestCheckoutService_Checkout_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	f := newCheckoutFixture(t, PaymentSync)
	const shoppers = 12
	for i := 0; i < shoppers; i++ {
		f.addToCart(t, fmt.Sprintf("sess-%d", i), "p-1", 1)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < shoppers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.checkout.Checkout(context.Background(), checkoutInput(fmt.Sprintf("sess-%d", i)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if apperrors.CodeOf(err) == domain.CodeInsufficientStock {
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, shoppers-5, rejected)
	assert.Equal(t, 0, stockOf(t, f.store, "p-1"))
	assert.Len(t, pendingEvents(t, f.store), 5)
}

func TestCheckoutService_Checkout_DeferredModePlacesPendingOrder(t *testing.T) {
	f := newCheckoutFixture(t, PaymentDeferred)
	f.addToCart(t, "sess-1", "p-1", 2)

	order, err := f.checkout.Checkout(context.Background(), checkoutInput("sess-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, 3, stockOf(t, f.store, "p-1"))
}

func TestNewCheckoutService_UnknownModeFallsBackToSync(t *testing.T) {
	svc := NewCheckoutService(memory.NewStore(), PaymentMode("later"), nil, newTestLogger())
	assert.Equal(t, PaymentSync, svc.mode)
}

func TestCheckoutService_Checkout_WholeStockRaceHasOneWinner(t *testing.T) {
	f := newCheckoutFixture(t, PaymentSync)
	const shoppers = 4
	for i := 0; i < shoppers; i++ {
		f.addToCart(t, fmt.Sprintf("sess-%d", i), "p-1", 5)
	}

	errs := make([]error, shoppers)
	var wg sync.WaitGroup
	for i := 0; i < shoppers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.checkout.Checkout(context.Background(), checkoutInput(fmt.Sprintf("sess-%d", i)))
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.Equal(t, domain.CodeInsufficientStock, apperrors.CodeOf(err))
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 0, stockOf(t, f.store, "p-1"))

	for i, err := range errs {
		if err == nil {
			continue
		}
		cart, err := f.store.Repositories().Carts.GetBySessionForUpdate(context.Background(), fmt.Sprintf("sess-%d", i))
		require.NoError(t, err)
		assert.Equal(t, 5, cart.Items[0].Quantity)
	}
}
