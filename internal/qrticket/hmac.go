package qrticket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

func hmac256(msg string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(msg))
	return hex.EncodeToString(h.Sum(nil))
}

func hmacEqual(expected, received string) bool {
	return hmac.Equal([]byte(expected), []byte(received))
}
