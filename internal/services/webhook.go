package services

import (
	"encoding/json"
	"fmt"
)

// Known webhook event kinds. Anything else is acknowledged and ignored.
const (
	WebhookPaymentCaptured = "payment.captured"
	WebhookPaymentFailed   = "payment.failed"
)

// webhookEnvelope mirrors the gateway's delivery shape: a kind tag plus a
// payload whose interesting part is the payment entity.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				Method           string `json:"method"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// WebhookEvent is the typed view of one delivery after parsing.
type WebhookEvent struct {
	Kind             string
	PaymentID        string
	OrderID          string
	Method           string
	ErrorDescription string
}

// Handled reports whether this event kind drives a ledger transition.
func (e *WebhookEvent) Handled() bool {
	return e.Kind == WebhookPaymentCaptured || e.Kind == WebhookPaymentFailed
}

// ParseWebhookEvent decodes a raw webhook body. Unknown event kinds parse
// fine; only an unreadable body or a handled event missing its correlation
// keys is an error.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("webhook: unreadable body: %w", err)
	}
	if envelope.Event == "" {
		return nil, fmt.Errorf("webhook: missing event kind")
	}

	event := &WebhookEvent{
		Kind:             envelope.Event,
		PaymentID:        envelope.Payload.Payment.Entity.ID,
		OrderID:          envelope.Payload.Payment.Entity.OrderID,
		Method:           envelope.Payload.Payment.Entity.Method,
		ErrorDescription: envelope.Payload.Payment.Entity.ErrorDescription,
	}

	if event.Handled() && (event.PaymentID == "" || event.OrderID == "") {
		return nil, fmt.Errorf("webhook: %s event missing payment or order id", event.Kind)
	}

	return event, nil
}
