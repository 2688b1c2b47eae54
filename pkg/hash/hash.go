// Package hash provides the keyed and unkeyed digests used to store OTP codes
// and session tokens without keeping the raw values.
package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HMACSHA256 produces hex-encoded HMAC-SHA256 digests with a server secret.
type HMACSHA256 struct {
	secret []byte
}

// NewHMACSHA256 creates a hasher keyed with secret.
func NewHMACSHA256(secret string) *HMACSHA256 {
	return &HMACSHA256{secret: []byte(secret)}
}

// Hash returns the hex digest of str.
func (h *HMACSHA256) Hash(str string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(str))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether str hashes to hashed, in constant time.
func (h *HMACSHA256) Verify(hashed, str string) bool {
	return subtle.ConstantTimeCompare([]byte(hashed), []byte(h.Hash(str))) == 1
}

// SHA256Hex returns the hex-encoded SHA-256 digest of str.
func SHA256Hex(str string) string {
	sum := sha256.Sum256([]byte(str))
	return hex.EncodeToString(sum[:])
}
