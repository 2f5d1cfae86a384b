package plugin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

// AddPayloadBodyPlugin encodes the payload as the JSON request body. Requests without a
// body (GET, empty payload) get an empty body.
type AddPayloadBodyPlugin struct{}

func (AddPayloadBodyPlugin) Name() string { return "add_payload_body" }

func (AddPayloadBodyPlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	rocket.Body = ""

	dest := rocket.Destination()
	if len(rocket.Payload()) > 0 && (dest == nil || dest.Method != http.MethodGet) {
		b, err := json.Marshal(map[string]any(rocket.Payload()))
		if err != nil {
			return nil, domain.ErrInvalidParams("payload", "payload cannot be encoded as JSON").WithCause(err)
		}
		rocket.Body = string(b)
		rocket.Headers.Set("Content-Type", "application/json")
	}

	return next(ctx, rocket)
}

var _ ports.Plugin = AddPayloadBodyPlugin{}
