package plugin

import (
	"context"
	"strings"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
)

// StartPlugin seeds the payload with the configured defaults for the driver, then the
// caller's parameters. Parameters prefixed with "_" steer plugins and never reach the
// payload.
type StartPlugin struct {
	defaults map[string]any
}

// NewStartPlugin creates a start plugin using the payload defaults for driver.
func NewStartPlugin(cfg *config.Config, driver string) *StartPlugin {
	var defaults map[string]any
	if cfg != nil {
		defaults = cfg.PayloadDefaults(driver)
	}
	return &StartPlugin{defaults: defaults}
}

func (p *StartPlugin) Name() string { return "start" }

func (p *StartPlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	if len(p.defaults) > 0 {
		// Clone so one run's nested merges never leak into the shared defaults.
		rocket.Payload().MergeRecursive(deepCopy(p.defaults))
	}
	rocket.MergePayload(FilterParams(rocket.Params()))
	return next(ctx, rocket)
}

// FilterParams returns params without the "_"-prefixed control keys.
func FilterParams(params domain.Collection) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if strings.HasPrefix(k, "_") {
			continue
		}
		out[k] = v
	}
	return out
}

func deepCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = deepCopy(nested)
			continue
		}
		out[k] = v
	}
	return out
}

var _ ports.Plugin = (*StartPlugin)(nil)
