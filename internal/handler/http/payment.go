package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/storefront/internal/payment"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

const headerIdempotencyKey = "X-Idempotency-Key"

// PaymentHandler receives payment provider webhooks.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment webhook handler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{service: svc, logger: logger}
}

// WebhookRequest accepts both the provider's {"data":{"id":...}} shape and
// a flat {"id":...}.
type WebhookRequest struct {
	ID   string `json:"id"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

func (req WebhookRequest) paymentID() string {
	if id := strings.TrimSpace(req.Data.ID); id != "" {
		return id
	}
	return strings.TrimSpace(req.ID)
}

// Webhook handles POST /api/v1/payments/webhook.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}
	if req.paymentID() == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("payment id is required"), h.logger)
		return
	}

	correlationID := r.Header.Get(headerIdempotencyKey)
	if correlationID == "" {
		correlationID = r.Header.Get(middleware.HeaderCorrelationID)
	}

	outcome, err := h.service.HandleWebhook(r.Context(), payment.Notification{
		PaymentID: req.paymentID(),
		Status:    req.Status,
		OrderID:   req.ExternalReference,
	}, correlationID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := map[string]any{"result": outcome.Result}
	if outcome.Order != nil {
		resp["order"] = newOrderView(*outcome.Order)
	}
	httputil.WriteData(w, http.StatusOK, resp)
}
