package sign

import (
	"errors"
	"testing"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
)

func TestNewHMAC_EmptySecret(t *testing.T) {
	_, err := NewHMAC("", "mch_secret_key")
	if !domain.IsType(err, domain.ErrorTypeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) || domainErr.Field != "mch_secret_key" {
		t.Errorf("expected field mch_secret_key, got %v", err)
	}
}

func TestHMAC_SignVerify(t *testing.T) {
	s, err := NewHMAC("secret", "mch_secret_key")
	if err != nil {
		t.Fatal(err)
	}

	msg := []byte("POST\n/v3/pay/transactions/out-trade-no/T123/reverse\n")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	tests := []struct {
		name    string
		message []byte
		sig     string
		wantErr bool
	}{
		{name: "valid", message: msg, sig: sig},
		{name: "tampered message", message: []byte("GET\n"), sig: sig, wantErr: true},
		{name: "not base64", message: msg, sig: "%%%", wantErr: true},
		{name: "other key", message: msg, sig: mustSign(t, "other", msg), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Verify(tt.message, tt.sig)
			if (err != nil) != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMismatch) {
				t.Errorf("expected ErrMismatch, got %v", err)
			}
		})
	}
}

func mustSign(t *testing.T, key string, msg []byte) string {
	t.Helper()
	s, err := NewHMAC(key, "k")
	if err != nil {
		t.Fatal(err)
	}
	sig, _ := s.Sign(msg)
	return sig
}
