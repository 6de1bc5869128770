package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// GenerateHash hashes a ticket verification code for storage.
func GenerateHash(code []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(code, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareHash checks a plaintext code against a stored hash.
func CompareHash(hash, code []byte) bool {
	if err := bcrypt.CompareHashAndPassword(hash, code); err != nil {
		return false
	}
	return true
}
