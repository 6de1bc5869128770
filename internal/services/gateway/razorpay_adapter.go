package gateway

import (
	"context"
	"fmt"

	"eventhub/internal/services/gateway/razorpay"

	"github.com/shopspring/decimal"
)

// RazorpayAdapter wraps the Razorpay implementation to conform to PaymentGateway
type RazorpayAdapter struct {
	client *razorpay.Razorpay
}

// NewRazorpayAdapter creates a new Razorpay adapter
func NewRazorpayAdapter(config *razorpay.Config) (*RazorpayAdapter, error) {
	client, err := razorpay.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Razorpay client: %w", err)
	}

	return &RazorpayAdapter{
		client: client,
	}, nil
}

// GetProvider returns the gateway provider type
func (a *RazorpayAdapter) GetProvider() Provider {
	return ProviderRazorpay
}

// CreateOrder creates a gateway order using Razorpay
func (a *RazorpayAdapter) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*Order, error) {
	reply, err := a.client.CreateOrder(ctx, amount, currency, receipt, notes)
	if err != nil {
		return nil, err
	}

	return &Order{
		ID:       reply.ID,
		Receipt:  reply.Receipt,
		Amount:   reply.Amount,
		Currency: reply.Currency,
		Status:   reply.Status,
	}, nil
}

// VerifySignature checks an HMAC signature over orderID|paymentID
func (a *RazorpayAdapter) VerifySignature(orderID, paymentID, signature string) (bool, error) {
	return a.client.VerifySignature(orderID, paymentID, signature)
}

// VerifyWebhookSignature checks an HMAC signature over a raw webhook body
func (a *RazorpayAdapter) VerifyWebhookSignature(body []byte, signature string) (bool, error) {
	return a.client.VerifyWebhookSignature(body, signature)
}

// FetchPayment fetches the gateway-side payment state
func (a *RazorpayAdapter) FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error) {
	reply, err := a.client.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	return &PaymentDetails{
		ID:               reply.ID,
		OrderID:          reply.OrderID,
		Status:           reply.Status,
		Method:           reply.Method,
		Amount:           reply.Amount,
		Currency:         reply.Currency,
		Email:            reply.Email,
		Contact:          reply.Contact,
		ErrorDescription: reply.ErrorDescription,
	}, nil
}

// Refund issues a refund against a captured payment
func (a *RazorpayAdapter) Refund(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*RefundResult, error) {
	reply, err := a.client.Refund(ctx, paymentID, amount, reason)
	if err != nil {
		return nil, err
	}

	return &RefundResult{
		ID:        reply.ID,
		PaymentID: reply.PaymentID,
		Amount:    reply.Amount,
		Status:    reply.Status,
	}, nil
}

// CreatePaymentLink builds a hosted payment link
func (a *RazorpayAdapter) CreatePaymentLink(ctx context.Context, req *LinkRequest) (*PaymentLink, error) {
	reply, err := a.client.CreatePaymentLink(ctx, req.Amount, req.Currency, req.Description,
		req.ReferenceID, req.CustomerName, req.Email, req.Contact, req.NotifyEmail, req.NotifySMS)
	if err != nil {
		return nil, err
	}

	return &PaymentLink{
		ID:       reply.ID,
		ShortURL: reply.ShortURL,
	}, nil
}
