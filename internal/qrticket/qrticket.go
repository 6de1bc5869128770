// Package qrticket encodes and validates the signed, timestamped payloads
// carried inside ticket and check-in QR codes.
package qrticket

import (
	"encoding/json"
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	TypeTicket  = "ticket"
	TypeCheckIn = "checkin"

	// DefaultFreshness is the maximum payload age; older tokens are rejected
	// regardless of content validity.
	DefaultFreshness = 24 * time.Hour

	qrImageSize = 256
)

// Payload is the structure embedded in a QR code. It is never persisted.
type Payload struct {
	Type       string `json:"type"`
	AttendeeID string `json:"attendee_id"`
	EventID    string `json:"event_id"`
	Timestamp  int64  `json:"timestamp"`
	Code       string `json:"code,omitempty"`
	Sig        string `json:"sig,omitempty"`
}

// DecodeResult is a tagged result so callers can distinguish bad data from
// an expired token without exception-driven control flow.
type DecodeResult struct {
	Payload Payload
	Valid   bool
	Expired bool
	Reason  string
}

// Codec encodes and decodes QR payloads. The zero freshness and now fields
// fall back to DefaultFreshness and time.Now.
type Codec struct {
	secret    []byte
	freshness time.Duration
	now       func() time.Time
}

func NewCodec(secret string, freshness time.Duration) *Codec {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Codec{
		secret:    []byte(secret),
		freshness: freshness,
		now:       time.Now,
	}
}

// WithClock replaces the codec's clock. Test hook.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

func (c *Codec) sign(p *Payload) string {
	msg := fmt.Sprintf("%s|%s|%d", p.AttendeeID, p.EventID, p.Timestamp)
	return hmac256(msg, c.secret)
}

// Encode produces the JSON payload for a ticket QR, stamped with the current
// instant and signed when a secret is configured.
func (c *Codec) Encode(attendeeID, eventID, code string) (string, error) {
	p := Payload{
		Type:       TypeTicket,
		AttendeeID: attendeeID,
		EventID:    eventID,
		Timestamp:  c.now().Unix(),
		Code:       code,
	}
	if len(c.secret) > 0 {
		p.Sig = c.sign(&p)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("qrticket: encode: %w", err)
	}
	return string(raw), nil
}

// EncodeImage renders the encoded payload as a scannable PNG.
func (c *Codec) EncodeImage(attendeeID, eventID, code string) (string, []byte, error) {
	raw, err := c.Encode(attendeeID, eventID, code)
	if err != nil {
		return "", nil, err
	}

	png, err := qrcode.Encode(raw, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", nil, fmt.Errorf("qrticket: render: %w", err)
	}
	return raw, png, nil
}

// Decode parses and validates a scanned payload. It never returns an error
// for expected-bad input: malformed or tampered data yields Valid=false,
// stale data yields Valid=false with Expired=true.
func (c *Codec) Decode(raw string) DecodeResult {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return DecodeResult{Reason: "malformed payload"}
	}

	if p.AttendeeID == "" || p.EventID == "" || p.Timestamp == 0 {
		return DecodeResult{Payload: p, Reason: "missing required fields"}
	}

	if p.Type != TypeTicket && p.Type != TypeCheckIn {
		return DecodeResult{Payload: p, Reason: "unknown payload type"}
	}

	if len(c.secret) > 0 {
		if p.Sig == "" || !hmacEqual(c.sign(&p), p.Sig) {
			return DecodeResult{Payload: p, Reason: "signature mismatch"}
		}
	}

	age := c.now().Sub(time.Unix(p.Timestamp, 0))
	if age > c.freshness {
		return DecodeResult{Payload: p, Expired: true, Reason: "token expired"}
	}

	return DecodeResult{Payload: p, Valid: true}
}
