// Package auth validates API keys presented to the operator API.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
)

// Authenticator validates API keys and resolves the caller's name.
type Authenticator struct {
	keys map[string]string // keyhash -> caller name
}

// NewAuthenticator creates an authenticator from the configured key hashes.
func NewAuthenticator(keys []config.APIKeyConfig) *Authenticator {
	a := &Authenticator{
		keys: make(map[string]string, len(keys)),
	}
	for _, k := range keys {
		a.keys[strings.ToLower(k.KeyHash)] = k.Name
	}
	return a
}

// Enabled reports whether any key is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.keys) > 0
}

// ValidateAPIKey validates an API key and returns the associated caller name.
func (a *Authenticator) ValidateAPIKey(apiKey string) (string, error) {
	keyHash := HashAPIKey(apiKey)

	name, ok := a.keys[keyHash]
	if !ok {
		return "", fmt.Errorf("invalid API key")
	}
	return name, nil
}

// ExtractAPIKey extracts the API key from the Authorization header
func ExtractAPIKey(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	// Support "Bearer <key>" format
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("unsupported authorization scheme")
	}

	return parts[1], nil
}

// HashAPIKey creates a SHA-256 hash of an API key for storage
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
