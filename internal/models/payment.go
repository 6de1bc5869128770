package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusCreated     PaymentStatus = "created"
	PaymentStatusLinkCreated PaymentStatus = "payment_link_created"
	PaymentStatusLinkSent    PaymentStatus = "payment_link_sent"
	PaymentStatusCaptured    PaymentStatus = "captured"
	PaymentStatusFailed      PaymentStatus = "failed"
	PaymentStatusRefunded    PaymentStatus = "refunded"
)

// Payment is the ledger row for one gateway order. order_id is generated
// locally before the gateway is contacted and is the correlation key between
// the local record and the gateway-side order; it is unique and never reused.
type Payment struct {
	ID               string          `json:"id" db:"id"`
	OrderID          string          `json:"order_id" db:"order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`
	EventID          string          `json:"event_id" db:"event_id"`
	AttendeeID       string          `json:"attendee_id" db:"attendee_id"`
	TicketTypeID     string          `json:"ticket_type_id" db:"ticket_type_id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	Currency         string          `json:"currency" db:"currency"`
	Status           PaymentStatus   `json:"status" db:"status"`
	PaymentMethod    string          `json:"payment_method,omitempty" db:"payment_method"`
	ErrorMessage     string          `json:"error_message,omitempty" db:"error_message"`
	RefundID         string          `json:"refund_id,omitempty" db:"refund_id"`
	RefundDetails    string          `json:"refund_details,omitempty" db:"refund_details"`
	PaymentLinkID    string          `json:"payment_link_id,omitempty" db:"payment_link_id"`
	PaymentLinkURL   string          `json:"payment_link_url,omitempty" db:"payment_link_url"`
	Created          time.Time       `json:"created" db:"created"`
	Updated          time.Time       `json:"updated" db:"updated"`
}

// Terminal reports whether no transition out of the status exists. Captured
// is not terminal, a refund can still move it.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusRefunded
}
