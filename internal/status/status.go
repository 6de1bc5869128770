package status

import (
	"errors"
	"fmt"
)

var (
	ErrValidation              = errors.New("request: invalid or missing input")
	ErrNotFound                = errors.New("record: not found")
	ErrAuthorization           = errors.New("request: ownership or role mismatch")
	ErrInvalidSignature        = errors.New("payment: invalid signature")
	ErrInvalidWebhookSignature = errors.New("webhook: invalid signature")
	ErrInvalidToken            = errors.New("qr: invalid token")
	ErrExpiredToken            = errors.New("qr: expired token")
	ErrInvalidState            = errors.New("state: transition not allowed from current status")
	ErrPersistence             = errors.New("storage: operation failed")
)

// GatewayError wraps a failed or timed-out gateway call. An inconclusive
// gateway outcome must never be interpreted as a definitive payment failure,
// so callers check for this type before deciding to transition a payment.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError wraps err as a GatewayError for the given operation.
func NewGatewayError(op string, err error) *GatewayError {
	return &GatewayError{Op: op, Err: err}
}

// IsGatewayError reports whether err is (or wraps) a GatewayError.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
