package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

type ClientConfig struct {
	BaseURL   string        `json:"baseUrl" mapstructure:"base_url"`
	KeyID     string        `json:"keyId" mapstructure:"key_id"`
	KeySecret string        `json:"keySecret" mapstructure:"key_secret"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

type Client struct {
	// baseURL is the base url of the Razorpay REST API.
	baseURL string

	// keyID is the API key id, sent as the basic-auth username.
	keyID string

	// keySecret is the API key secret, sent as the basic-auth password.
	keySecret string

	// hc is the http client.
	hc *http.Client
}

// newClient creates new instance of the Razorpay HTTP client.
func newClient(c *ClientConfig) *Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:   c.BaseURL,
		keyID:     c.KeyID,
		keySecret: c.KeySecret,

		// set http client with timeout.
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

type orderReply struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
	Status   string          `json:"status"`
}

type paymentReply struct {
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

type refundReply struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

type linkReply struct {
	ID       string `json:"id"`
	ShortURL string `json:"short_url"`
}

type apiErrorReply struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// do performs an authenticated JSON call and decodes the reply into out.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var bodyReader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("do: json.Marshal: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	_baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("do: url.Parse: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", _baseURL.String(), path), bodyReader)
	if err != nil {
		return fmt.Errorf("do: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("do: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return errors.New("do: resp.StatusCode: 401 => Unauthorized")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiErrorReply
		dec := json.NewDecoder(resp.Body)
		if err := dec.Decode(&apiErr); err == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("do: resp.StatusCode: %d, code: %s, description: %s",
				resp.StatusCode, apiErr.Error.Code, apiErr.Error.Description)
		}
		return fmt.Errorf("do: resp.StatusCode: %d", resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("do: json.Decode: %w", err)
	}
	return nil
}

// createOrder creates an order on the gateway. amount is already in minor units.
func (c *Client) createOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*orderReply, error) {
	body := map[string]any{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}

	var reply orderReply
	if err := c.do(ctx, http.MethodPost, "/orders", body, &reply); err != nil {
		return nil, fmt.Errorf("createOrder: %w", err)
	}
	return &reply, nil
}

// fetchPayment fetches the gateway-side payment state by payment id.
func (c *Client) fetchPayment(ctx context.Context, paymentID string) (*paymentReply, error) {
	var reply paymentReply
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/payments/%s", paymentID), nil, &reply); err != nil {
		return nil, fmt.Errorf("fetchPayment: %w", err)
	}
	return &reply, nil
}

// refund issues a refund against a payment. amount is in minor units.
func (c *Client) refund(ctx context.Context, paymentID string, amountMinor int64, reason string) (*refundReply, error) {
	body := map[string]any{
		"amount": amountMinor,
	}
	if reason != "" {
		body["notes"] = map[string]string{"reason": reason}
	}

	var reply refundReply
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/payments/%s/refund", paymentID), body, &reply); err != nil {
		return nil, fmt.Errorf("refund: %w", err)
	}
	return &reply, nil
}

// createPaymentLink builds a hosted payment link with customer contact and
// notification preferences.
func (c *Client) createPaymentLink(ctx context.Context, amountMinor int64, currency, description, referenceID, name, email, contact string, notifyEmail, notifySMS bool) (*linkReply, error) {
	body := map[string]any{
		"amount":       amountMinor,
		"currency":     currency,
		"description":  description,
		"reference_id": referenceID,
		"customer": map[string]string{
			"name":    name,
			"email":   email,
			"contact": contact,
		},
		"notify": map[string]bool{
			"email": notifyEmail,
			"sms":   notifySMS,
		},
	}

	var reply linkReply
	if err := c.do(ctx, http.MethodPost, "/payment_links", body, &reply); err != nil {
		return nil, fmt.Errorf("createPaymentLink: %w", err)
	}
	return &reply, nil
}
