package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventhub/internal/models"
	"eventhub/internal/services/gateway"
	"eventhub/internal/status"
	"eventhub/monitoring"
	"eventhub/utils"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const webhookSeenTTL = 24 * time.Hour

// TicketTypeStore resolves the priced ticket types payments are created for.
type TicketTypeStore interface {
	FindTicketType(ctx context.Context, id string) (*models.TicketType, error)
}

// PaymentService is the reconciliation layer between the ledger, the gateway
// and the two capture triggers: the synchronous client verification call and
// the asynchronous gateway webhook. Both converge onto the same idempotent
// ledger transition no matter the order or number of deliveries.
type PaymentService struct {
	ledger      *PaymentLedger
	gateway     gateway.PaymentGateway
	attendees   AttendeeStore
	ticketTypes TicketTypeStore
	notifier    *Notifier
	redis       *redis.Client
	breaker     *utils.CircuitBreaker
}

func NewPaymentService(ledger *PaymentLedger, gw gateway.PaymentGateway, attendees AttendeeStore, ticketTypes TicketTypeStore, notifier *Notifier, redisClient *redis.Client) *PaymentService {
	return &PaymentService{
		ledger:      ledger,
		gateway:     gw,
		attendees:   attendees,
		ticketTypes: ticketTypes,
		notifier:    notifier,
		redis:       redisClient,
		breaker:     utils.NewCircuitBreaker("payment-gateway"),
	}
}

type CreatePaymentRequest struct {
	EventID      string          `json:"event_id"`
	AttendeeID   string          `json:"attendee_id"`
	TicketTypeID string          `json:"ticket_type_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

// CreatePayment creates the gateway order and the matching ledger row. The
// returned payment's order id is the correlation key for every later
// transition.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error) {
	if req.EventID == "" || req.AttendeeID == "" || req.TicketTypeID == "" {
		return nil, fmt.Errorf("%w: missing event, attendee or ticket type id", status.ErrValidation)
	}

	ticketType, err := s.ticketTypes.FindTicketType(ctx, req.TicketTypeID)
	if err != nil {
		return nil, err
	}
	if ticketType.EventID != req.EventID {
		return nil, fmt.Errorf("%w: ticket type %s does not belong to event %s", status.ErrValidation, req.TicketTypeID, req.EventID)
	}
	if !ticketType.Price.IsPositive() {
		return nil, fmt.Errorf("%w: ticket type %s has no positive price", status.ErrValidation, req.TicketTypeID)
	}

	// the ticket type is the price authority; a client-submitted amount is
	// only accepted when it matches
	if !req.Amount.IsZero() && !req.Amount.Equal(ticketType.Price) {
		return nil, fmt.Errorf("%w: amount %s does not match ticket type price %s", status.ErrValidation, req.Amount, ticketType.Price)
	}
	amount := ticketType.Price
	currency := ticketType.Currency
	if currency == "" {
		currency = req.Currency
	}
	if currency == "" {
		currency = "INR"
	}

	receipt, err := utils.GenerateCode(8)
	if err != nil {
		return nil, fmt.Errorf("payment: generate receipt: %w", err)
	}

	order, err := s.callGateway("createOrder", func() (any, error) {
		return s.gateway.CreateOrder(ctx, amount, currency, fmt.Sprintf("rcpt_%s", receipt), map[string]string{
			"event_id":       req.EventID,
			"attendee_id":    req.AttendeeID,
			"ticket_type_id": req.TicketTypeID,
		})
	})
	if err != nil {
		return nil, err
	}
	gwOrder := order.(*gateway.Order)

	payment := &models.Payment{
		OrderID:      gwOrder.ID,
		EventID:      req.EventID,
		AttendeeID:   req.AttendeeID,
		TicketTypeID: req.TicketTypeID,
		Amount:       amount,
		Currency:     currency,
	}
	if err := s.ledger.Create(ctx, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

// GetPayment returns the ledger record for an order id.
func (s *PaymentService) GetPayment(ctx context.Context, orderID string) (*models.Payment, error) {
	return s.ledger.Get(ctx, orderID)
}

// CreatePaymentLink builds a hosted payment link for an order and records
// the link transition; with send set it also emails the attendee and records
// delivery.
func (s *PaymentService) CreatePaymentLink(ctx context.Context, orderID string, send bool) (*models.Payment, error) {
	payment, err := s.ledger.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	attendee, err := s.attendees.FindByID(ctx, payment.AttendeeID)
	if err != nil {
		return nil, err
	}

	linkReply, err := s.callGateway("createPaymentLink", func() (any, error) {
		return s.gateway.CreatePaymentLink(ctx, &gateway.LinkRequest{
			Amount:       payment.Amount,
			Currency:     payment.Currency,
			Description:  fmt.Sprintf("Ticket payment for order %s", orderID),
			ReferenceID:  orderID,
			CustomerName: attendee.Name,
			Email:        attendee.Email,
			NotifyEmail:  true,
		})
	})
	if err != nil {
		return nil, err
	}
	link := linkReply.(*gateway.PaymentLink)

	payment, err = s.ledger.MarkLinkCreated(ctx, orderID, link.ID, link.ShortURL)
	if err != nil {
		return nil, err
	}

	if !send {
		return payment, nil
	}

	s.notifier.Enqueue(Notification{
		To:      attendee.Email,
		Subject: "Complete your ticket payment",
		Body: fmt.Sprintf("<p>Hi %s,</p><p>Please complete your payment of %s %s here: <a href=%q>%s</a></p>",
			attendee.Name, payment.Amount, payment.Currency, link.ShortURL, link.ShortURL),
	})

	return s.ledger.MarkLinkSent(ctx, orderID)
}

// VerifyPayment handles the client-submitted confirmation. An invalid
// signature fails the request without touching the ledger; everything after
// that goes through the same settle path the webhook uses.
func (s *PaymentService) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (*models.Payment, bool, error) {
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, false, fmt.Errorf("%w: order_id, payment_id and signature are required", status.ErrValidation)
	}

	ok, err := s.gateway.VerifySignature(orderID, paymentID, signature)
	if err != nil {
		return nil, false, fmt.Errorf("payment: verify signature: %w", err)
	}
	if !ok {
		return nil, false, fmt.Errorf("%w: order %s", status.ErrInvalidSignature, orderID)
	}

	return s.settleCapture(ctx, orderID, paymentID)
}

// settleCapture fetches the authoritative gateway state and applies the
// capture transition. A transport-level gateway failure surfaces without a
// ledger transition: only a definitive gateway rejection marks the payment
// failed, an inconclusive outcome leaves it for a retry or the webhook.
func (s *PaymentService) settleCapture(ctx context.Context, orderID, paymentID string) (*models.Payment, bool, error) {
	detailsReply, err := s.callGateway("fetchPayment", func() (any, error) {
		return s.gateway.FetchPayment(ctx, paymentID)
	})
	if err != nil {
		return nil, false, err
	}
	details := detailsReply.(*gateway.PaymentDetails)

	if details.Failed() {
		reason := details.ErrorDescription
		if reason == "" {
			reason = fmt.Sprintf("payment %s rejected at gateway", paymentID)
		}
		if _, failErr := s.ledger.MarkFailed(ctx, orderID, reason); failErr != nil {
			slog.Error("payment: mark failed after gateway rejection", "orderId", orderID, "error", failErr)
		}
		return nil, false, fmt.Errorf("%w: %s", status.ErrInvalidState, reason)
	}
	if !details.Captured() {
		// still in flight on the gateway side (created, authorized); no
		// transition, a retry or the webhook settles it once it is terminal
		return nil, false, status.NewGatewayError("fetchPayment",
			fmt.Errorf("payment %s not settled, gateway status %q", paymentID, details.Status))
	}

	payment, duplicate, err := s.ledger.MarkCaptured(ctx, orderID, details.ID, details.Method)
	if err != nil {
		if !errors.Is(err, status.ErrNotFound) && !errors.Is(err, status.ErrInvalidState) {
			if _, failErr := s.ledger.MarkFailed(ctx, orderID, err.Error()); failErr != nil {
				slog.Error("payment: mark failed after capture error", "orderId", orderID, "error", failErr)
			}
		}
		return nil, false, err
	}

	if !duplicate {
		s.onCaptured(ctx, payment)
	}

	return payment, duplicate, nil
}

// onCaptured runs the post-commit side effects of a fresh capture: ticket
// verification code issuance plus notifications. None of them can fail the
// capture itself.
func (s *PaymentService) onCaptured(ctx context.Context, payment *models.Payment) {
	attendee, err := s.attendees.FindByID(ctx, payment.AttendeeID)
	if err != nil {
		slog.Error("payment: attendee lookup after capture", "attendeeId", payment.AttendeeID, "error", err)
		return
	}

	code, err := utils.GenerateCode(3)
	if err == nil {
		hash, hashErr := utils.GenerateHash([]byte(code))
		if hashErr == nil {
			if setErr := s.attendees.SetTicketCode(ctx, attendee.ID, hash); setErr != nil {
				slog.Error("payment: store ticket code", "attendeeId", attendee.ID, "error", setErr)
				code = ""
			}
		} else {
			code = ""
		}
	} else {
		code = ""
	}

	msg := Notification{
		Channel: fmt.Sprintf("event-%s", payment.EventID),
		Message: map[string]any{
			"type":        "payment_captured",
			"order_id":    payment.OrderID,
			"attendee_id": payment.AttendeeID,
			"amount":      payment.Amount.String(),
		},
	}
	if attendee.Email != "" {
		msg.To = attendee.Email
		msg.Subject = "Your ticket is confirmed"
		body := fmt.Sprintf("<p>Hi %s,</p><p>Your payment of %s %s is confirmed.</p>",
			attendee.Name, payment.Amount, payment.Currency)
		if code != "" {
			body += fmt.Sprintf("<p>Your ticket verification code is <b>%s</b>.</p>", code)
		}
		msg.Body = body
	}
	s.notifier.Enqueue(msg)
}

// WebhookOutcome reports how a delivery was handled. Business-level
// rejections still acknowledge with 200 so the sender does not retry; only
// trust-boundary violations and inconclusive infrastructure failures bubble
// up as errors.
type WebhookOutcome struct {
	Event   string `json:"event"`
	OrderID string `json:"order_id,omitempty"`
	Result  string `json:"result"`
}

const (
	WebhookResultProcessed = "processed"
	WebhookResultDuplicate = "duplicate"
	WebhookResultIgnored   = "ignored"
	WebhookResultRejected  = "rejected"
)

// HandleWebhook validates the delivery signature over the raw body, then
// dispatches on the event kind. Replayed deliveries short-circuit through a
// redis guard; correctness does not depend on it, the ledger CAS already
// makes redelivery harmless.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookOutcome, error) {
	ok, err := s.gateway.VerifyWebhookSignature(body, signature)
	if err != nil {
		return nil, fmt.Errorf("webhook: verify signature: %w", err)
	}
	if !ok {
		monitoring.TrackWebhookEvent("unknown", "bad_signature")
		return nil, status.ErrInvalidWebhookSignature
	}

	event, err := ParseWebhookEvent(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrValidation, err)
	}

	if !event.Handled() {
		monitoring.TrackWebhookEvent(event.Kind, WebhookResultIgnored)
		return &WebhookOutcome{Event: event.Kind, Result: WebhookResultIgnored}, nil
	}

	if s.webhookSeen(ctx, event) {
		monitoring.TrackWebhookEvent(event.Kind, WebhookResultDuplicate)
		return &WebhookOutcome{Event: event.Kind, OrderID: event.OrderID, Result: WebhookResultDuplicate}, nil
	}

	outcome := &WebhookOutcome{Event: event.Kind, OrderID: event.OrderID, Result: WebhookResultProcessed}

	switch event.Kind {
	case WebhookPaymentCaptured:
		_, duplicate, err := s.settleCapture(ctx, event.OrderID, event.PaymentID)
		if err != nil {
			if errors.Is(err, status.ErrInvalidState) || errors.Is(err, status.ErrNotFound) {
				slog.Warn("webhook: capture rejected", "orderId", event.OrderID, "error", err)
				outcome.Result = WebhookResultRejected
				break
			}
			monitoring.TrackWebhookEvent(event.Kind, "error")
			return nil, err
		}
		if duplicate {
			outcome.Result = WebhookResultDuplicate
		}

	case WebhookPaymentFailed:
		if _, err := s.ledger.MarkFailed(ctx, event.OrderID, event.ErrorDescription); err != nil {
			if errors.Is(err, status.ErrInvalidState) || errors.Is(err, status.ErrNotFound) {
				slog.Warn("webhook: failure event rejected", "orderId", event.OrderID, "error", err)
				outcome.Result = WebhookResultRejected
				break
			}
			monitoring.TrackWebhookEvent(event.Kind, "error")
			return nil, err
		}
	}

	s.markWebhookSeen(ctx, event)
	monitoring.TrackWebhookEvent(event.Kind, outcome.Result)
	return outcome, nil
}

func webhookSeenKey(event *WebhookEvent) string {
	return fmt.Sprintf("webhook:seen:%s:%s", event.Kind, event.PaymentID)
}

// webhookSeen reports whether this delivery already reached a final outcome.
// Redis being down only disables the short-circuit.
func (s *PaymentService) webhookSeen(ctx context.Context, event *WebhookEvent) bool {
	if s.redis == nil {
		return false
	}

	key := webhookSeenKey(event)
	n, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		slog.Warn("webhook: replay guard unavailable", "key", key, "error", err)
		return false
	}
	return n > 0
}

// markWebhookSeen records a delivery only after its outcome is final. A
// delivery that failed on infrastructure stays unmarked so the gateway's
// retry is processed, not short-circuited.
func (s *PaymentService) markWebhookSeen(ctx context.Context, event *WebhookEvent) {
	if s.redis == nil {
		return
	}

	key := webhookSeenKey(event)
	if err := s.redis.Set(ctx, key, 1, webhookSeenTTL).Err(); err != nil {
		slog.Warn("webhook: replay guard write failed", "key", key, "error", err)
	}
}

// RefundPayment refunds a captured payment. Amount defaults to the full
// original amount and may not exceed it; any status but captured is rejected
// without mutation, which also covers a second refund attempt.
func (s *PaymentService) RefundPayment(ctx context.Context, orderID string, amount *decimal.Decimal, reason string) (*models.Payment, error) {
	payment, err := s.ledger.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if payment.Status != models.PaymentStatusCaptured {
		return nil, fmt.Errorf("%w: cannot refund payment %s from current status %q", status.ErrInvalidState, orderID, payment.Status)
	}

	refundAmount := payment.Amount
	if amount != nil {
		if !amount.IsPositive() || amount.GreaterThan(payment.Amount) {
			return nil, fmt.Errorf("%w: refund amount must be positive and at most %s", status.ErrValidation, payment.Amount)
		}
		refundAmount = *amount
	}

	refundReply, err := s.callGateway("refund", func() (any, error) {
		return s.gateway.Refund(ctx, payment.GatewayPaymentID, refundAmount, reason)
	})
	if err != nil {
		return nil, err
	}
	refund := refundReply.(*gateway.RefundResult)

	details, _ := json.Marshal(refund)
	payment, err = s.ledger.MarkRefunded(ctx, orderID, refund.ID, string(details))
	if err != nil {
		return nil, err
	}

	if attendee, lookupErr := s.attendees.FindByID(ctx, payment.AttendeeID); lookupErr == nil && attendee.Email != "" {
		s.notifier.Enqueue(Notification{
			To:      attendee.Email,
			Subject: "Your refund is on its way",
			Body: fmt.Sprintf("<p>Hi %s,</p><p>We refunded %s %s for order %s.</p>",
				attendee.Name, refundAmount, payment.Currency, orderID),
		})
	}

	return payment, nil
}

// callGateway routes one gateway call through the circuit breaker and
// records metrics. A tripped breaker surfaces as a GatewayError so callers
// treat it like any other inconclusive gateway outcome.
func (s *PaymentService) callGateway(op string, fn func() (any, error)) (any, error) {
	start := time.Now()
	result, err := s.breaker.Execute(context.Background(), fn)
	if err != nil {
		monitoring.TrackGatewayRequest(op, "error", time.Since(start))
		if !status.IsGatewayError(err) {
			return nil, status.NewGatewayError(op, err)
		}
		return nil, err
	}
	monitoring.TrackGatewayRequest(op, "ok", time.Since(start))
	return result, nil
}
