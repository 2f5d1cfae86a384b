// Package wechat implements the WeChat Pay v3 driver.
package wechat

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/container"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/sign"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/plugin"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/provider/registry"
)

const (
	// Driver is the name used in configuration and requests.
	Driver = "wechat"

	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.mch.weixin.qq.com/"

	OpPosCancel = "pos.cancel"
	OpPosQuery  = "pos.query"
)

// operations maps each operation to the plugin that shapes its outbound call.
var operations = map[string]func(cfg *config.Config) ports.Plugin{
	OpPosCancel: func(cfg *config.Config) ports.Plugin { return NewCancelPlugin(cfg) },
	OpPosQuery:  func(cfg *config.Config) ports.Plugin { return NewQueryPlugin(cfg) },
}

// Provider assembles WeChat Pay plugin lists.
type Provider struct {
	cfg       *config.Config
	events    ports.EventDispatcher
	client    ports.HTTPDoer
	newSigner ports.SignerFactory
}

// New creates the driver from the container. The config and dispatcher are required;
// the HTTP client falls back to http.DefaultClient.
func New(c *container.Container) (ports.Provider, error) {
	cfg, err := container.Config(c)
	if err != nil {
		return nil, err
	}
	events, err := container.Dispatcher(c)
	if err != nil {
		return nil, err
	}

	p := &Provider{cfg: cfg, events: events, newSigner: container.SignerFactory(c, sign.NewSigner)}
	if c.Has(container.KeyHTTPClient) {
		if p.client, err = container.HTTPClient(c); err != nil {
			return nil, err
		}
	}

	if logger, err := container.Logger(c); err == nil {
		logger.Debug("payment driver assembled",
			slog.String("driver", Driver),
			slog.Int("tenants", len(cfg.Providers[Driver])))
	}

	return p, nil
}

// Register registers the WeChat Pay factory.
func Register() {
	registry.RegisterFactory(registry.ProviderFactory{
		Type:           Driver,
		Description:    "WeChat Pay API v3",
		Create:         New,
		ValidateConfig: ValidateConfig,
	})
}

// ValidateConfig checks every configured WeChat merchant profile.
func ValidateConfig(cfg *config.Config) error {
	for tenant, pc := range cfg.Providers[Driver] {
		prefix := fmt.Sprintf("providers.%s.%s.", Driver, tenant)
		if pc.MchID == "" {
			return domain.ErrConfig(prefix+"mch_id", "merchant id is required")
		}
		if pc.MchSecretKey == "" {
			return domain.ErrConfig(prefix+"mch_secret_key", "merchant secret is required")
		}
	}
	return nil
}

func (p *Provider) Name() string { return Driver }

func (p *Provider) Operations() []string {
	ops := make([]string, 0, len(operations))
	for op := range operations {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

func (p *Provider) Plugins(operation string) ([]ports.Plugin, error) {
	shape, ok := operations[operation]
	if !ok {
		return nil, domain.ErrUnknownOperation(Driver, operation)
	}

	return []ports.Plugin{
		plugin.NewStartPlugin(p.cfg, Driver),
		shape(p.cfg),
		plugin.AddPayloadBodyPlugin{},
		NewSignPlugin(p.cfg, p.newSigner),
		plugin.NewAddRadarPlugin(p.events),
		plugin.NewHTTPPlugin(p.client, p.events),
		NewVerifyResponsePlugin(p.cfg, p.events, p.newSigner),
	}, nil
}

func (p *Provider) CallbackPlugins() []ports.Plugin {
	return []ports.Plugin{
		plugin.NewCallbackPlugin(p.events),
		NewVerifyCallbackPlugin(p.cfg, p.events, p.newSigner),
	}
}

// merchant returns the profile selected by the `_config` parameter.
func merchant(cfg *config.Config, params domain.Collection) (config.ProviderConfig, string, error) {
	tenant := params.String("_config")
	if tenant == "" {
		tenant = config.DefaultTenant
	}
	pc, ok := cfg.Provider(Driver, tenant)
	if !ok {
		return config.ProviderConfig{}, tenant, domain.ErrConfig(
			fmt.Sprintf("providers.%s.%s", Driver, tenant),
			fmt.Sprintf("no %s merchant profile named %q", Driver, tenant))
	}
	return pc, tenant, nil
}

func baseURL(pc config.ProviderConfig) string {
	if pc.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimSuffix(pc.BaseURL, "/") + "/"
}

var _ ports.Provider = (*Provider)(nil)
