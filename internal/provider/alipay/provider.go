// Package alipay implements the Alipay open platform driver.
//
// Requests are form-encoded with a JSON biz_content and a signature over the sorted
// parameters. Page-pay operations never call out: they produce an auto-submitting HTML
// form the caller hands to the buyer's browser.
package alipay

import (
	"fmt"
	"sort"

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
	Driver = "alipay"

	// GatewayURL and SandboxGatewayURL are the open platform endpoints.
	GatewayURL        = "https://openapi.alipay.com/gateway.do"
	SandboxGatewayURL = "https://openapi-sandbox.dl.alipaydev.com/gateway.do"

	OpFundTransPagePay = "fund.trans.page.pay"
	OpTradeQuery       = "trade.query"
)

var operations = map[string]func() ports.Plugin{
	OpFundTransPagePay: func() ports.Plugin { return TransPagePayPlugin{} },
	OpTradeQuery:       func() ports.Plugin { return TradeQueryPlugin{} },
}

// Provider assembles Alipay plugin lists.
type Provider struct {
	cfg       *config.Config
	events    ports.EventDispatcher
	client    ports.HTTPDoer
	newSigner ports.SignerFactory
}

// New creates the driver from the container.
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
	return p, nil
}

// Register registers the Alipay factory.
func Register() {
	registry.RegisterFactory(registry.ProviderFactory{
		Type:           Driver,
		Description:    "Alipay open platform",
		Create:         New,
		ValidateConfig: ValidateConfig,
	})
}

// ValidateConfig checks every configured Alipay merchant profile.
func ValidateConfig(cfg *config.Config) error {
	for tenant, pc := range cfg.Providers[Driver] {
		prefix := fmt.Sprintf("providers.%s.%s.", Driver, tenant)
		if pc.AppID == "" {
			return domain.ErrConfig(prefix+"app_id", "application id is required")
		}
		if pc.AppSecretKey == "" {
			return domain.ErrConfig(prefix+"app_secret_key", "application secret is required")
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
		shape(),
		NewPreparePlugin(p.cfg),
		NewSignPlugin(p.cfg, p.newSigner),
		plugin.NewAddRadarPlugin(p.events),
		HTMLResponsePlugin{},
		plugin.NewHTTPPlugin(p.client, p.events),
		plugin.NewTenantVerifyPlugin("alipay.verify_response", tenantSigner(p.cfg, p.newSigner), p.events, responseSignature),
	}, nil
}

func (p *Provider) CallbackPlugins() []ports.Plugin {
	return []ports.Plugin{
		plugin.NewCallbackPlugin(p.events),
		plugin.NewTenantVerifyPlugin("alipay.verify_callback", tenantSigner(p.cfg, p.newSigner), p.events, callbackSignature),
	}
}

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

func gatewayURL(pc config.ProviderConfig) string {
	switch {
	case pc.BaseURL != "":
		return pc.BaseURL
	case pc.Mode == "sandbox":
		return SandboxGatewayURL
	default:
		return GatewayURL
	}
}

func tenantSigner(cfg *config.Config, newSigner ports.SignerFactory) plugin.SignerFunc {
	if newSigner == nil {
		newSigner = sign.NewSigner
	}
	return func(rocket *domain.Rocket) (ports.Signer, error) {
		pc, tenant, err := merchant(cfg, rocket.Params())
		if err != nil {
			return nil, err
		}
		signer, err := newSigner(pc.AppSecretKey, fmt.Sprintf("providers.%s.%s.app_secret_key", Driver, tenant))
		if err != nil {
			return nil, err
		}
		return signer, nil
	}
}

var _ ports.Provider = (*Provider)(nil)
