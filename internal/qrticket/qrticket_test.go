package qrticket

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestEncodeDecode_RoundTrip(t *testing.T) {
	codec := NewCodec(testSecret, 0)

	raw, err := codec.Encode("att_1", "evt_1", "ABC123")
	require.NoError(t, err)

	result := codec.Decode(raw)
	assert.True(t, result.Valid)
	assert.False(t, result.Expired)
	assert.Equal(t, "att_1", result.Payload.AttendeeID)
	assert.Equal(t, "evt_1", result.Payload.EventID)
	assert.Equal(t, "ABC123", result.Payload.Code)
	assert.Equal(t, TypeTicket, result.Payload.Type)
}

func TestDecode_Malformed(t *testing.T) {
	codec := NewCodec(testSecret, 0)

	for _, raw := range []string{"", "garbage", "{", `[1,2,3]`} {
		result := codec.Decode(raw)
		assert.False(t, result.Valid, "input %q", raw)
		assert.False(t, result.Expired)
	}
}

func TestDecode_MissingFields(t *testing.T) {
	codec := NewCodec(testSecret, 0)

	result := codec.Decode(`{"type":"ticket","attendee_id":"att_1"}`)
	assert.False(t, result.Valid)
	assert.Equal(t, "missing required fields", result.Reason)
}

func TestDecode_UnknownType(t *testing.T) {
	codec := NewCodec(testSecret, 0)

	raw, err := codec.Encode("att_1", "evt_1", "")
	require.NoError(t, err)

	var p Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	p.Type = "loyalty-card"
	forged, err := json.Marshal(p)
	require.NoError(t, err)

	result := codec.Decode(string(forged))
	assert.False(t, result.Valid)
	assert.Equal(t, "unknown payload type", result.Reason)
}

func TestDecode_TamperedSignature(t *testing.T) {
	codec := NewCodec(testSecret, 0)

	raw, err := codec.Encode("att_1", "evt_1", "")
	require.NoError(t, err)

	forged := strings.Replace(raw, "att_1", "att_2", 1)
	result := codec.Decode(forged)
	assert.False(t, result.Valid)
	assert.Equal(t, "signature mismatch", result.Reason)
}

func TestDecode_WrongSecret(t *testing.T) {
	raw, err := NewCodec("secret-a", 0).Encode("att_1", "evt_1", "")
	require.NoError(t, err)

	result := NewCodec("secret-b", 0).Decode(raw)
	assert.False(t, result.Valid)
	assert.Equal(t, "signature mismatch", result.Reason)
}

func TestDecode_Freshness(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		age     time.Duration
		valid   bool
		expired bool
	}{
		{"fresh", time.Minute, true, false},
		{"almost stale", 23 * time.Hour, true, false},
		{"just stale", 24*time.Hour + time.Minute, false, true},
		{"very stale", 48 * time.Hour, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoder := NewCodec(testSecret, 0).
				WithClock(func() time.Time { return now.Add(-tc.age) })
			raw, err := encoder.Encode("att_1", "evt_1", "")
			require.NoError(t, err)

			decoder := NewCodec(testSecret, 0).
				WithClock(func() time.Time { return now })
			result := decoder.Decode(raw)

			assert.Equal(t, tc.valid, result.Valid)
			assert.Equal(t, tc.expired, result.Expired)
		})
	}
}

func TestEncodeImage_PNG(t *testing.T) {
	codec := NewCodec(testSecret, 0)

	raw, png, err := codec.EncodeImage("att_1", "evt_1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	require.Greater(t, len(png), 4)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])

	// The rendered payload still decodes.
	result := codec.Decode(raw)
	assert.True(t, result.Valid)
}
