package plugin

import (
	"context"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

// Extractor pulls the signed message and its signature out of a rocket. ok is false when
// the rocket carries nothing to verify.
type Extractor func(rocket *domain.Rocket) (message []byte, signature string, ok bool)

// SignerFunc resolves the signer for a run, typically from the merchant profile the
// rocket's params select.
type SignerFunc func(rocket *domain.Rocket) (ports.Signer, error)

// VerifyPlugin checks a signature before the rest of the chain trusts the data.
// A failure emits sign.failed and aborts the run with a verification error.
type VerifyPlugin struct {
	name    string
	signer  SignerFunc
	events  ports.EventDispatcher
	extract Extractor
}

// NewVerifyPlugin creates a verification plugin with a fixed signer. events may be nil.
func NewVerifyPlugin(name string, signer ports.Signer, events ports.EventDispatcher, extract Extractor) *VerifyPlugin {
	return NewTenantVerifyPlugin(name, func(*domain.Rocket) (ports.Signer, error) {
		return signer, nil
	}, events, extract)
}

// NewTenantVerifyPlugin creates a verification plugin that resolves its signer per run.
func NewTenantVerifyPlugin(name string, signer SignerFunc, events ports.EventDispatcher, extract Extractor) *VerifyPlugin {
	return &VerifyPlugin{name: name, signer: signer, events: events, extract: extract}
}

func (p *VerifyPlugin) Name() string { return p.name }

func (p *VerifyPlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	message, signature, ok := p.extract(rocket)
	if !ok {
		return next(ctx, rocket)
	}

	signer, err := p.signer(rocket)
	if err != nil {
		return nil, err
	}

	var verr *domain.Error
	if signature == "" {
		verr = domain.ErrVerification("signature is missing").WithCode(domain.ErrorCodeSignatureMissing)
	} else if err := signer.Verify(message, signature); err != nil {
		verr = domain.ErrVerification("signature does not match").WithCause(err)
	}

	if verr != nil {
		if p.events != nil {
			data := map[string]any{"signature": signature, "message": string(message)}
			if err := p.events.Dispatch(ctx, domain.SignFailed{Rocket: rocket.ID, Driver: rocket.Driver, Data: data}); err != nil {
				return nil, err
			}
		}
		return nil, verr.WithStage(p.name)
	}

	return next(ctx, rocket)
}

var _ ports.Plugin = (*VerifyPlugin)(nil)
