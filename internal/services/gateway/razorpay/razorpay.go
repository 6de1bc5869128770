package razorpay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/status"

	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL   string `json:"base_url" mapstructure:"base_url"`
	KeyID     string `json:"key_id" mapstructure:"key_id"`
	KeySecret string `json:"key_secret" mapstructure:"key_secret"`

	// WebhookSecret signs webhook deliveries; it is distinct from KeySecret.
	WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`

	// Timeout bounds every REST call; zero falls back to 10s.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Razorpay talks to the Razorpay REST API. It holds no payment state.
type Razorpay struct {
	keySecret     string
	webhookSecret string

	client *Client
}

var minorUnitFactor = decimal.NewFromInt(100)

// New returns a new Razorpay instance.
func New(cfg *Config) (*Razorpay, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("razorpay: missing key id or key secret")
	}

	client := newClient(&ClientConfig{
		BaseURL:   cfg.BaseURL,
		KeyID:     cfg.KeyID,
		KeySecret: cfg.KeySecret,
		Timeout:   cfg.Timeout,
	})

	return &Razorpay{
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		client:        client,
	}, nil
}

// toMinorUnits converts a major-unit amount to the gateway's integer minor
// units (paise for INR), rounding to the nearest unit.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnitFactor).Round(0).IntPart()
}

func fromMinorUnits(amount decimal.Decimal) decimal.Decimal {
	return amount.Div(minorUnitFactor)
}

type OrderReply struct {
	ID       string
	Receipt  string
	Amount   decimal.Decimal
	Currency string
	Status   string
}

// CreateOrder creates a gateway order for the given major-unit amount.
func (r *Razorpay) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*OrderReply, error) {
	if !amount.IsPositive() {
		return nil, status.NewGatewayError("createOrder", fmt.Errorf("amount must be positive, got %s", amount))
	}

	reply, err := r.client.createOrder(ctx, toMinorUnits(amount), currency, receipt, notes)
	if err != nil {
		return nil, status.NewGatewayError("createOrder", err)
	}

	return &OrderReply{
		ID:       reply.ID,
		Receipt:  reply.Receipt,
		Amount:   fromMinorUnits(reply.Amount),
		Currency: reply.Currency,
		Status:   reply.Status,
	}, nil
}

// VerifySignature recomputes the HMAC-SHA256 over "orderID|paymentID" with
// the key secret and compares it to the supplied signature. A mismatch
// returns false, never an error; only a missing secret errors.
func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) (bool, error) {
	if r.keySecret == "" {
		return false, errors.New("razorpay: key secret not configured")
	}

	payload := fmt.Sprintf("%s|%s", orderID, paymentID)
	return VerifyHmac256([]byte(payload), []byte(r.keySecret), signature), nil
}

// VerifyWebhookSignature validates the HMAC over a raw webhook body against
// the webhook-specific secret.
func (r *Razorpay) VerifyWebhookSignature(body []byte, signature string) (bool, error) {
	if r.webhookSecret == "" {
		return false, errors.New("razorpay: webhook secret not configured")
	}

	return VerifyHmac256(body, []byte(r.webhookSecret), signature), nil
}

type PaymentReply struct {
	ID               string
	OrderID          string
	Status           string
	Method           string
	Amount           decimal.Decimal
	Currency         string
	Email            string
	Contact          string
	ErrorDescription string
}

// FetchPayment fetches the authoritative payment state from the gateway.
func (r *Razorpay) FetchPayment(ctx context.Context, paymentID string) (*PaymentReply, error) {
	reply, err := r.client.fetchPayment(ctx, paymentID)
	if err != nil {
		return nil, status.NewGatewayError("fetchPayment", err)
	}

	return &PaymentReply{
		ID:               reply.ID,
		OrderID:          reply.OrderID,
		Status:           reply.Status,
		Method:           reply.Method,
		Amount:           fromMinorUnits(reply.Amount),
		Currency:         reply.Currency,
		Email:            reply.Email,
		Contact:          reply.Contact,
		ErrorDescription: reply.ErrorDescription,
	}, nil
}

type RefundReply struct {
	ID        string
	PaymentID string
	Amount    decimal.Decimal
	Status    string
}

// Refund issues a refund against a captured payment.
func (r *Razorpay) Refund(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*RefundReply, error) {
	if !amount.IsPositive() {
		return nil, status.NewGatewayError("refund", fmt.Errorf("amount must be positive, got %s", amount))
	}

	reply, err := r.client.refund(ctx, paymentID, toMinorUnits(amount), reason)
	if err != nil {
		return nil, status.NewGatewayError("refund", err)
	}

	return &RefundReply{
		ID:        reply.ID,
		PaymentID: reply.PaymentID,
		Amount:    fromMinorUnits(reply.Amount),
		Status:    reply.Status,
	}, nil
}

type LinkReply struct {
	ID       string
	ShortURL string
}

// CreatePaymentLink builds a hosted payment link.
func (r *Razorpay) CreatePaymentLink(ctx context.Context, amount decimal.Decimal, currency, description, referenceID, name, email, contact string, notifyEmail, notifySMS bool) (*LinkReply, error) {
	if !amount.IsPositive() {
		return nil, status.NewGatewayError("createPaymentLink", fmt.Errorf("amount must be positive, got %s", amount))
	}

	reply, err := r.client.createPaymentLink(ctx, toMinorUnits(amount), currency, description, referenceID, name, email, contact, notifyEmail, notifySMS)
	if err != nil {
		return nil, status.NewGatewayError("createPaymentLink", err)
	}

	return &LinkReply{
		ID:       reply.ID,
		ShortURL: reply.ShortURL,
	}, nil
}
