package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookEvent_Captured(t *testing.T) {
	body := capturedWebhookBody("order_001", "pay_abc")

	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, WebhookPaymentCaptured, event.Kind)
	assert.Equal(t, "pay_abc", event.PaymentID)
	assert.Equal(t, "order_001", event.OrderID)
	assert.Equal(t, "upi", event.Method)
	assert.True(t, event.Handled())
}

func TestParseWebhookEvent_Failed(t *testing.T) {
	body := failedWebhookBody("order_001", "pay_abc", "insufficient funds")

	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, WebhookPaymentFailed, event.Kind)
	assert.Equal(t, "insufficient funds", event.ErrorDescription)
	assert.True(t, event.Handled())
}

func TestParseWebhookEvent_UnknownKind(t *testing.T) {
	body := []byte(`{"event":"refund.processed","payload":{"payment":{"entity":{}}}}`)

	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "refund.processed", event.Kind)
	assert.False(t, event.Handled())
}

func TestParseWebhookEvent_Invalid(t *testing.T) {
	cases := map[string][]byte{
		"unreadable body":      []byte("{not json"),
		"missing event kind":   []byte(`{"payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_x"}}}}`),
		"missing payment id":   []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"order_id":"order_x"}}}}`),
		"missing order id":     []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_x"}}}}`),
		"empty handled entity": []byte(`{"event":"payment.captured","payload":{}}`),
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWebhookEvent(body)
			assert.Error(t, err)
		})
	}
}
