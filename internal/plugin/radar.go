package plugin

import (
	"context"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

// AddRadarPlugin checks that the outbound request is complete and announces it with a
// pay.started event.
type AddRadarPlugin struct {
	events ports.EventDispatcher
}

// NewAddRadarPlugin creates the plugin. events may be nil.
func NewAddRadarPlugin(events ports.EventDispatcher) *AddRadarPlugin {
	return &AddRadarPlugin{events: events}
}

func (p *AddRadarPlugin) Name() string { return "add_radar" }

func (p *AddRadarPlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	if rocket.Direction().RequiresRequest() && rocket.Destination() == nil {
		return nil, domain.ErrInvalidParams("_url", "no destination was assembled for "+rocket.Operation).
			WithStage(p.Name())
	}

	if p.events != nil {
		err := p.events.Dispatch(ctx, domain.PayStarted{
			Rocket:   rocket.ID,
			Driver:   rocket.Driver,
			Gateway:  rocket.Operation,
			Endpoint: rocket.Endpoint(),
			Payload:  rocket.Payload().DeepClone(),
		})
		if err != nil {
			return nil, err
		}
	}

	return next(ctx, rocket)
}

var _ ports.Plugin = (*AddRadarPlugin)(nil)
