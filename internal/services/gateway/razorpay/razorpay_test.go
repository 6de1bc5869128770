package razorpay

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRazorpay(t *testing.T) *Razorpay {
	t.Helper()
	r, err := New(&Config{
		KeyID:         "rzp_test_key",
		KeySecret:     "key-secret",
		WebhookSecret: "webhook-secret",
	})
	require.NoError(t, err)
	return r
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(&Config{KeyID: "rzp_test_key"})
	assert.Error(t, err)

	_, err = New(&Config{KeySecret: "key-secret"})
	assert.Error(t, err)
}

func TestNew_ClientTimeout(t *testing.T) {
	r, err := New(&Config{
		KeyID:     "rzp_test_key",
		KeySecret: "key-secret",
		Timeout:   3 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, r.client.hc.Timeout)

	// Zero falls back to the default.
	r = newTestRazorpay(t)
	assert.Equal(t, 10*time.Second, r.client.hc.Timeout)
}

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		major string
		minor int64
	}{
		{"499.00", 49900},
		{"499", 49900},
		{"0.01", 1},
		{"1234.56", 123456},
		{"10.005", 1001}, // rounds to nearest paisa
	}

	for _, tc := range cases {
		assert.Equal(t, tc.minor, toMinorUnits(decimal.RequireFromString(tc.major)), "major %s", tc.major)
	}

	back := fromMinorUnits(decimal.NewFromInt(49900))
	assert.True(t, back.Equal(decimal.RequireFromString("499")))
}

func TestVerifySignature(t *testing.T) {
	r := newTestRazorpay(t)

	sig := Hmac256([]byte("order_001|pay_abc"), []byte("key-secret"))

	ok, err := r.VerifySignature("order_001", "pay_abc", sig)
	require.NoError(t, err)
	assert.True(t, ok)

	// Any field change invalidates the signature.
	ok, err = r.VerifySignature("order_002", "pay_abc", sig)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.VerifySignature("order_001", "pay_xyz", sig)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.VerifySignature("order_001", "pay_abc", sig+"00")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifySignature_MissingSecret(t *testing.T) {
	r := &Razorpay{}
	_, err := r.VerifySignature("order_001", "pay_abc", "sig")
	assert.Error(t, err)
}

func TestVerifyWebhookSignature(t *testing.T) {
	r := newTestRazorpay(t)

	body := []byte(`{"event":"payment.captured"}`)
	sig := Hmac256(body, []byte("webhook-secret"))

	ok, err := r.VerifyWebhookSignature(body, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	// The signature covers exact bytes: any body change breaks it.
	ok, err = r.VerifyWebhookSignature(append(body, ' '), sig)
	require.NoError(t, err)
	assert.False(t, ok)

	// Key secret does not stand in for the webhook secret.
	ok, err = r.VerifyWebhookSignature(body, Hmac256(body, []byte("key-secret")))
	require.NoError(t, err)
	assert.False(t, ok)
}
