package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider represents different payment gateway types
type Provider string

const (
	ProviderRazorpay Provider = "razorpay"
	ProviderStripe   Provider = "stripe"
)

// Order is a gateway-side order handle created before any money moves.
type Order struct {
	ID       string          `json:"id"`
	Receipt  string          `json:"receipt"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
}

// PaymentDetails is the authoritative gateway-side view of a payment.
type PaymentDetails struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	Status           string          `json:"status"`
	Method           string          `json:"method"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Email            string          `json:"email"`
	Contact          string          `json:"contact"`
	ErrorDescription string          `json:"error_description"`
}

// Captured reports whether the gateway has definitively collected the funds.
func (p *PaymentDetails) Captured() bool {
	return p.Status == "captured"
}

// Failed reports a definitive gateway-side rejection.
func (p *PaymentDetails) Failed() bool {
	return p.Status == "failed"
}

// RefundResult is the gateway's record of an issued refund.
type RefundResult struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

// LinkRequest describes a hosted payment link to create.
type LinkRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Description  string          `json:"description"`
	ReferenceID  string          `json:"reference_id"`
	CustomerName string          `json:"customer_name"`
	Email        string          `json:"email"`
	Contact      string          `json:"contact"`
	NotifyEmail  bool            `json:"notify_email"`
	NotifySMS    bool            `json:"notify_sms"`
}

// PaymentLink is the created hosted link.
type PaymentLink struct {
	ID       string `json:"id"`
	ShortURL string `json:"short_url"`
}

// PaymentGateway defines the common interface for all payment gateway providers.
// Implementations hold no local payment state: callers decide what to persist.
type PaymentGateway interface {
	// GetProvider returns the gateway provider type
	GetProvider() Provider

	// CreateOrder creates a gateway order for the given major-unit amount
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*Order, error)

	// VerifySignature checks an HMAC signature over orderID|paymentID
	VerifySignature(orderID, paymentID, signature string) (bool, error)

	// VerifyWebhookSignature checks an HMAC signature over a raw webhook body
	VerifyWebhookSignature(body []byte, signature string) (bool, error)

	// FetchPayment fetches the gateway-side payment state
	FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error)

	// Refund issues a refund against a captured payment
	Refund(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*RefundResult, error)

	// CreatePaymentLink builds a hosted payment link
	CreatePaymentLink(ctx context.Context, req *LinkRequest) (*PaymentLink, error)
}

// GatewayFactory creates gateway instances based on provider type
type GatewayFactory interface {
	CreateGateway(ctx context.Context, provider Provider, config any) (PaymentGateway, error)
	GetSupportedProviders() []Provider
}
