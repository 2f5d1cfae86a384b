// Package sign provides the keyed signer used for outbound requests and inbound
// verification.
package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

// ErrMismatch is returned by Verify when the signature does not match the message.
var ErrMismatch = errors.New("signature mismatch")

// HMAC signs messages with HMAC-SHA256 and encodes signatures as standard base64.
type HMAC struct {
	key []byte
}

// NewHMAC creates a signer for a merchant secret. field names the config key the secret
// came from and is used in the error when it is empty.
func NewHMAC(secret, field string) (*HMAC, error) {
	if secret == "" {
		return nil, domain.ErrConfig(field, "merchant secret is not configured")
	}
	return &HMAC{key: []byte(secret)}, nil
}

// NewSigner is the ports.SignerFactory backed by NewHMAC.
func NewSigner(secret, field string) (ports.Signer, error) {
	s, err := NewHMAC(secret, field)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Sign returns the base64 HMAC-SHA256 of message.
func (s *HMAC) Sign(message []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(s.mac(message)), nil
}

// Verify checks signature against message in constant time.
func (s *HMAC) Verify(message []byte, signature string) error {
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return ErrMismatch
	}
	if !hmac.Equal(got, s.mac(message)) {
		return ErrMismatch
	}
	return nil
}

func (s *HMAC) mac(message []byte) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write(message)
	return h.Sum(nil)
}

var (
	_ ports.Signer        = (*HMAC)(nil)
	_ ports.SignerFactory = NewSigner
)
