package plugin

import (
	"context"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

// CallbackPlugin opens the chain for an inbound gateway notification. It announces the
// notification, copies the decoded fields into the payload and makes the run return that
// payload instead of calling out.
type CallbackPlugin struct {
	events ports.EventDispatcher
}

// NewCallbackPlugin creates the plugin. events may be nil.
func NewCallbackPlugin(events ports.EventDispatcher) *CallbackPlugin {
	return &CallbackPlugin{events: events}
}

func (p *CallbackPlugin) Name() string { return "callback" }

func (p *CallbackPlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	if p.events != nil {
		err := p.events.Dispatch(ctx, domain.RequestReceived{
			Rocket: rocket.ID,
			Driver: rocket.Driver,
			Data:   map[string]any(rocket.Params().DeepClone()),
		})
		if err != nil {
			return nil, err
		}
	}

	rocket.MergePayload(FilterParams(rocket.Params())).SetDirection(domain.DirectionNoRequest)

	return next(ctx, rocket)
}

var _ ports.Plugin = (*CallbackPlugin)(nil)
