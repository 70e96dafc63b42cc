package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signature headers attached to every webhook request
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderDelivery  = "X-Webhook-Delivery"
)

// Signer computes the HMAC-SHA256 signature partners use to authenticate
// webhook payloads. Signing happens at send time; the secret is read from
// the delivery job, which carries a copy of the partner's secret.
type Signer struct{}

// NewSigner creates a new webhook payload signer
func NewSigner() *Signer {
	return &Signer{}
}

// Sign returns the signature header value for the payload:
// "sha256=" followed by the hex-encoded HMAC-SHA256 digest
func (s *Signer) Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}

// Verify reports whether the given signature matches the payload.
// Comparison is constant-time.
func (s *Signer) Verify(secret string, payload []byte, signature string) bool {
	expected := s.Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
