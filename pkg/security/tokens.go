package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// RandomHex returns n random bytes hex encoded (2n characters).
func RandomHex(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NewSessionToken issues an opaque token for anonymous carts.
func NewSessionToken() (string, error) {
	return RandomHex(24)
}

// NewPaymentCode returns prefix followed by eight upper-case hex characters.
func NewPaymentCode(prefix string) (string, error) {
	suffix, err := RandomHex(4)
	if err != nil {
		return "", err
	}
	return prefix + strings.ToUpper(suffix), nil
}

// SignPayload computes the hex HMAC-SHA256 of body with secret.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares a hex signature against the expected HMAC in constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
