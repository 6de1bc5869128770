package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventhub/internal/services"
	"eventhub/internal/status"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	app            *pocketbase.PocketBase
	paymentService *services.PaymentService
}

func NewPaymentHandler(app *pocketbase.PocketBase, paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		app:            app,
		paymentService: paymentService,
	}
}

// CreatePayment - Create a gateway order and the matching ledger record
func (h *PaymentHandler) CreatePayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req services.CreatePaymentRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	payment, err := h.paymentService.CreatePayment(e.Request.Context(), req)
	if err != nil {
		slog.Error("h.paymentService.CreatePayment()", "req", req, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusCreated, payment)
}

// GetPayment - Get one payment by its order id
func (h *PaymentHandler) GetPayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orderID := e.Request.PathValue("orderId")
	if orderID == "" {
		return apis.NewBadRequestError("Order ID is required", nil)
	}

	payment, err := h.paymentService.GetPayment(e.Request.Context(), orderID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, payment)
}

// CreatePaymentLink - Create (and optionally send) a hosted payment link
func (h *PaymentHandler) CreatePaymentLink(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orderID := e.Request.PathValue("orderId")
	if orderID == "" {
		return apis.NewBadRequestError("Order ID is required", nil)
	}

	var req struct {
		Send bool `json:"send"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	payment, err := h.paymentService.CreatePaymentLink(e.Request.Context(), orderID, req.Send)
	if err != nil {
		slog.Error("h.paymentService.CreatePaymentLink()", "orderId", orderID, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, payment)
}

// VerifyPayment - Settle a client-submitted payment confirmation
func (h *PaymentHandler) VerifyPayment(e *core.RequestEvent) error {
	var req struct {
		OrderID   string `json:"order_id"`
		PaymentID string `json:"payment_id"`
		Signature string `json:"signature"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	payment, duplicate, err := h.paymentService.VerifyPayment(e.Request.Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		if errors.Is(err, status.ErrInvalidSignature) {
			slog.Warn("payment verification rejected", "orderId", req.OrderID, "error", err)
		} else {
			slog.Error("h.paymentService.VerifyPayment()", "orderId", req.OrderID, "error", err)
		}
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"status":    "success",
		"duplicate": duplicate,
		"payment":   payment,
	})
}

// RefundPayment - Refund a captured payment, full or partial
func (h *PaymentHandler) RefundPayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orderID := e.Request.PathValue("orderId")
	if orderID == "" {
		return apis.NewBadRequestError("Order ID is required", nil)
	}

	var req struct {
		Amount *decimal.Decimal `json:"amount"`
		Reason string           `json:"reason"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	payment, err := h.paymentService.RefundPayment(e.Request.Context(), orderID, req.Amount, req.Reason)
	if err != nil {
		slog.Error("h.paymentService.RefundPayment()", "orderId", orderID, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, payment)
}
