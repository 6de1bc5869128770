package handlers

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"eventhub/internal/services"
	"eventhub/internal/status"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type WebhookHandler struct {
	app            *pocketbase.PocketBase
	paymentService *services.PaymentService
}

func NewWebhookHandler(app *pocketbase.PocketBase, paymentService *services.PaymentService) *WebhookHandler {
	return &WebhookHandler{
		app:            app,
		paymentService: paymentService,
	}
}

// GatewayWebhook receives asynchronous payment events from the gateway. The
// signature covers the exact raw bytes, so the body is captured before any
// decoding. Business-level rejections still return 200 {received: true};
// only a bad signature (400) or an inconclusive failure (500) asks the
// gateway to retry.
func (h *WebhookHandler) GatewayWebhook(e *core.RequestEvent) error {
	r := e.Request

	var b bytes.Buffer
	if _, err := b.ReadFrom(r.Body); err != nil {
		return apis.NewBadRequestError("Unreadable body", err)
	}
	r.Body = io.NopCloser(&b)
	body := b.Bytes()

	signature := r.Header.Get("X-Signature")
	if signature == "" {
		signature = r.Header.Get("X-Razorpay-Signature")
	}
	if signature == "" {
		return apis.NewBadRequestError("Missing signature header", nil)
	}

	outcome, err := h.paymentService.HandleWebhook(r.Context(), body, signature)
	if err != nil {
		if errors.Is(err, status.ErrInvalidWebhookSignature) {
			slog.Warn("webhook signature rejected", "remote", r.RemoteAddr)
			return apis.NewBadRequestError("Invalid signature", nil)
		}
		if errors.Is(err, status.ErrValidation) {
			return apis.NewBadRequestError("Invalid payload", err)
		}
		slog.Error("h.paymentService.HandleWebhook()", "error", err)
		return apis.NewInternalServerError("internal error", err)
	}

	slog.Info("webhook processed", "event", outcome.Event, "orderId", outcome.OrderID, "result", outcome.Result)

	return e.JSON(http.StatusOK, map[string]any{
		"received": true,
		"result":   outcome.Result,
	})
}
