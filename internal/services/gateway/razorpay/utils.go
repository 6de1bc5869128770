package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Hmac256 is a function to generate HMAC256 hash.
func Hmac256(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// VerifyHmac256 recomputes the HMAC over body and compares it against the
// received hex digest in constant time. A mismatch is a normal outcome, not
// an error.
func VerifyHmac256(body, key []byte, received string) bool {
	expected := Hmac256(body, key)
	return hmac.Equal([]byte(received), []byte(expected))
}
