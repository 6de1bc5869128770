package services

import (
	"context"
	"fmt"

	"eventhub/internal/models"
	"eventhub/internal/status"
	"eventhub/monitoring"
)

// PaymentStore is the persistence contract for the ledger. TransitionStatus
// must be an atomic conditional update ("set ... where order_id = ? and
// status in (...)") so concurrent writers race safely: the loser matches no
// row and the ledger classifies the miss by re-reading.
type PaymentStore interface {
	Insert(ctx context.Context, p *models.Payment) error
	FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	TransitionStatus(ctx context.Context, orderID string, from []models.PaymentStatus, to models.PaymentStatus, set map[string]any) (bool, error)
}

// PaymentLedger owns the payment record lifecycle. Status only moves forward
// along the transition graph; captured, refunded and failed rows are never
// resurrected. Only the reconciliation service asks for transitions.
type PaymentLedger struct {
	store PaymentStore
}

func NewPaymentLedger(store PaymentStore) *PaymentLedger {
	return &PaymentLedger{store: store}
}

// trackPaymentTransition is a seam so tests can record the emitted edges.
var trackPaymentTransition = monitoring.TrackPaymentTransition

// Create inserts a fresh row in status created. Amount, currency and the
// event/attendee/ticket references are write-once from here on.
func (l *PaymentLedger) Create(ctx context.Context, p *models.Payment) error {
	if p.OrderID == "" {
		return fmt.Errorf("%w: missing order id", status.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", status.ErrValidation)
	}
	if p.EventID == "" || p.AttendeeID == "" || p.TicketTypeID == "" {
		return fmt.Errorf("%w: missing event, attendee or ticket type reference", status.ErrValidation)
	}

	p.Status = models.PaymentStatusCreated
	if err := l.store.Insert(ctx, p); err != nil {
		return fmt.Errorf("ledger: insert %s: %w", p.OrderID, err)
	}

	trackPaymentTransition("", string(models.PaymentStatusCreated))
	return nil
}

// Get returns the payment for an order id.
func (l *PaymentLedger) Get(ctx context.Context, orderID string) (*models.Payment, error) {
	return l.store.FindByOrderID(ctx, orderID)
}

// MarkLinkCreated records that a hosted payment link exists for the order.
func (l *PaymentLedger) MarkLinkCreated(ctx context.Context, orderID, linkID, linkURL string) (*models.Payment, error) {
	return l.transition(ctx, orderID,
		[]models.PaymentStatus{models.PaymentStatusCreated},
		models.PaymentStatusLinkCreated,
		map[string]any{
			"payment_link_id":  linkID,
			"payment_link_url": linkURL,
		})
}

// MarkLinkSent records that the payment link was delivered to the attendee.
func (l *PaymentLedger) MarkLinkSent(ctx context.Context, orderID string) (*models.Payment, error) {
	return l.transition(ctx, orderID,
		[]models.PaymentStatus{models.PaymentStatusLinkCreated},
		models.PaymentStatusLinkSent, nil)
}

var captureFrom = []models.PaymentStatus{
	models.PaymentStatusCreated,
	models.PaymentStatusLinkCreated,
	models.PaymentStatusLinkSent,
}

// MarkCaptured applies the capture transition. A miss where the row already
// sits at captured with the same gateway payment id reports duplicate
// success instead of an error; that is what makes redelivered webhooks and a
// racing client verification call converge.
func (l *PaymentLedger) MarkCaptured(ctx context.Context, orderID, gatewayPaymentID, method string) (*models.Payment, bool, error) {
	// the prior read only feeds the metric label; the classification below
	// uses the post-update re-read
	prior, err := l.store.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}

	applied, err := l.store.TransitionStatus(ctx, orderID, captureFrom, models.PaymentStatusCaptured, map[string]any{
		"gateway_payment_id": gatewayPaymentID,
		"payment_method":     method,
	})
	if err != nil {
		return nil, false, fmt.Errorf("ledger: capture %s: %w", orderID, err)
	}

	p, findErr := l.store.FindByOrderID(ctx, orderID)
	if findErr != nil {
		return nil, false, findErr
	}

	if applied {
		trackPaymentTransition(string(prior.Status), string(models.PaymentStatusCaptured))
		return p, false, nil
	}

	if p.Status == models.PaymentStatusCaptured && p.GatewayPaymentID == gatewayPaymentID {
		return p, true, nil
	}
	return nil, false, fmt.Errorf("%w: cannot capture payment %s in status %q", status.ErrInvalidState, orderID, p.Status)
}

// MarkFailed applies the capture-rejected transition. Marking an
// already-failed row again is a no-op success so redelivered failure
// webhooks stay harmless; captured or refunded rows are never clobbered.
func (l *PaymentLedger) MarkFailed(ctx context.Context, orderID, errMsg string) (*models.Payment, error) {
	prior, err := l.store.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	applied, err := l.store.TransitionStatus(ctx, orderID, captureFrom, models.PaymentStatusFailed, map[string]any{
		"error_message": errMsg,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: fail %s: %w", orderID, err)
	}

	p, findErr := l.store.FindByOrderID(ctx, orderID)
	if findErr != nil {
		return nil, findErr
	}

	if applied {
		trackPaymentTransition(string(prior.Status), string(models.PaymentStatusFailed))
		return p, nil
	}
	if p.Status == models.PaymentStatusFailed {
		return p, nil
	}
	return nil, fmt.Errorf("%w: cannot fail payment %s in status %q", status.ErrInvalidState, orderID, p.Status)
}

// MarkRefunded moves a captured payment to refunded. Any other starting
// status, including refunded itself, is rejected without mutation.
func (l *PaymentLedger) MarkRefunded(ctx context.Context, orderID, refundID, refundDetails string) (*models.Payment, error) {
	p, err := l.transition(ctx, orderID,
		[]models.PaymentStatus{models.PaymentStatusCaptured},
		models.PaymentStatusRefunded,
		map[string]any{
			"refund_id":      refundID,
			"refund_details": refundDetails,
		})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// transition runs one CAS update and classifies a miss as not-found or
// invalid-state by re-reading the row.
func (l *PaymentLedger) transition(ctx context.Context, orderID string, from []models.PaymentStatus, to models.PaymentStatus, set map[string]any) (*models.Payment, error) {
	prior, err := l.store.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	applied, err := l.store.TransitionStatus(ctx, orderID, from, to, set)
	if err != nil {
		return nil, fmt.Errorf("ledger: transition %s to %s: %w", orderID, to, err)
	}

	p, findErr := l.store.FindByOrderID(ctx, orderID)
	if findErr != nil {
		return nil, findErr
	}

	if !applied {
		if p.Status.Terminal() {
			return nil, fmt.Errorf("%w: payment %s is terminal in status %q", status.ErrInvalidState, orderID, p.Status)
		}
		return nil, fmt.Errorf("%w: cannot move payment %s from status %q to %q", status.ErrInvalidState, orderID, p.Status, to)
	}

	trackPaymentTransition(string(prior.Status), string(to))
	return p, nil
}
