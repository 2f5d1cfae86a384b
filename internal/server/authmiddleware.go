package server

import (
	"net/http"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/auth"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
)

// AuthMiddleware validates Bearer API keys. With no keys configured it passes every
// request through.
func AuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !authenticator.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, err := auth.ExtractAPIKey(r)
			if err != nil {
				unauthorized(w, r, err.Error())
				return
			}

			caller, err := authenticator.ValidateAPIKey(apiKey)
			if err != nil {
				unauthorized(w, r, "invalid API key")
				return
			}

			AddLogField(r.Context(), "caller", caller)
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	AddLogField(r.Context(), "error", msg)
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Error: domain.ErrAuthentication(msg),
	})
}
