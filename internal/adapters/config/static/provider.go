// Package static provides an in-memory configuration source for embedding and tests.
package static

import (
	"context"
	"fmt"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
)

// Provider serves one fixed configuration. Watch never reports a change.
type Provider struct {
	cfg *config.Config
}

func NewProvider(cfg *config.Config) *Provider {
	return &Provider{cfg: cfg}
}

func (p *Provider) Load(ctx context.Context) (*config.Config, error) {
	if p.cfg == nil {
		return nil, fmt.Errorf("static config is nil")
	}
	return p.cfg, nil
}

// Watch blocks until ctx is done.
func (p *Provider) Watch(ctx context.Context, onChange func(*config.Config)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (p *Provider) Close() error {
	return nil
}

var _ ports.ConfigProvider = (*Provider)(nil)
