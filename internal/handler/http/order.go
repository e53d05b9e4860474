package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// OrderHandler serves checkout and the admin order reports.
type OrderHandler struct {
	checkout *service.CheckoutService
	orders   *service.OrderService
	logger   *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(checkout *service.CheckoutService, orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders, logger: logger}
}

// CheckoutRequest is the JSON body of POST /api/v1/orders. The email is
// checked by the checkout itself so a malformed one reports INVALID_EMAIL.
type CheckoutRequest struct {
	SessionID       string `json:"session_id" validate:"omitempty,max=128"`
	CustomerName    string `json:"customer_name" validate:"required,max=255"`
	CustomerEmail   string `json:"customer_email" validate:"required,max=255"`
	CustomerPhone   string `json:"customer_phone" validate:"required,max=50"`
	ShippingAddress string `json:"shipping_address" validate:"required,max=500"`
	ShippingCity    string `json:"shipping_city" validate:"required,max=120"`
	ShippingZip     string `json:"shipping_zip" validate:"required,max=20"`
}

// Checkout handles POST /api/v1/orders.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(r.Header.Get(middleware.HeaderSessionID))
	}
	if sessionID == "" {
		httputil.WriteError(w, r, apperrors.Validation("SESSION_REQUIRED", "session_id or "+middleware.HeaderSessionID+" header is required"), h.logger)
		return
	}

	order, err := h.checkout.Checkout(r.Context(), service.CheckoutInput{
		SessionID:       sessionID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		ShippingCity:    req.ShippingCity,
		ShippingZip:     req.ShippingZip,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, newOrderView(*order))
}

// GetOrder handles GET /api/v1/admin/orders/{id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newOrderView(*order))
}

// ListOrders handles GET /api/v1/admin/orders.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	res, err := h.orders.ListOrders(r.Context(), pagination.FromRequest(r, repository.OrderSorting))
	h.writeOrders(w, r, res, err)
}

// ListOrdersByStatus handles GET /api/v1/admin/orders/status?status=.
func (h *OrderHandler) ListOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	res, err := h.orders.ListOrdersByStatus(r.Context(), status, pagination.FromRequest(r, repository.OrderSorting))
	h.writeOrders(w, r, res, err)
}

// OrderReport handles GET /api/v1/admin/orders/report?start=&end=.
func (h *OrderHandler) OrderReport(w http.ResponseWriter, r *http.Request) {
	start, err := parseTimeParam(r, "start")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	end, err := parseTimeParam(r, "end")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.orders.ListOrdersByDateRange(r.Context(), start, end, pagination.FromRequest(r, repository.OrderSorting))
	h.writeOrders(w, r, res, err)
}

func (h *OrderHandler) writeOrders(w http.ResponseWriter, r *http.Request, res pagination.Result[domain.Order], err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, pagination.Map(res, newOrderView))
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, apperrors.Validation(domain.CodeInvalidDateRange, name+" is required")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.Validation(domain.CodeInvalidDateRange, name+" must be an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}
