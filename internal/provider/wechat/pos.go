package wechat

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
)

// CancelPlugin shapes a POS (code payment) order reversal.
//
// https://pay.weixin.qq.com/docs/merchant/apis/code-payment-v3/direct/reverse.html
type CancelPlugin struct {
	cfg *config.Config
}

func NewCancelPlugin(cfg *config.Config) *CancelPlugin {
	return &CancelPlugin{cfg: cfg}
}

func (p *CancelPlugin) Name() string { return "wechat.pos.cancel" }

func (p *CancelPlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	outTradeNo := orderNumber(rocket)
	if outTradeNo == "" {
		return nil, domain.ErrInvalidParams("out_trade_no", "cancelling a POS order requires `out_trade_no`")
	}

	pc, _, err := merchant(p.cfg, rocket.Params())
	if err != nil {
		return nil, err
	}

	rocket.SetDestination(http.MethodPost,
		baseURL(pc)+"v3/pay/transactions/out-trade-no/"+url.PathEscape(outTradeNo)+"/reverse")
	rocket.SetPayload(map[string]any{
		"appid": pc.AppIDFor(rocket.Params().String("_type")),
		"mchid": pc.MchID,
	})

	return next(ctx, rocket)
}

// QueryPlugin shapes a POS order lookup by merchant order number.
//
// https://pay.weixin.qq.com/docs/merchant/apis/code-payment-v3/direct/query-by-out-trade-no.html
type QueryPlugin struct {
	cfg *config.Config
}

func NewQueryPlugin(cfg *config.Config) *QueryPlugin {
	return &QueryPlugin{cfg: cfg}
}

func (p *QueryPlugin) Name() string { return "wechat.pos.query" }

func (p *QueryPlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	outTradeNo := orderNumber(rocket)
	if outTradeNo == "" {
		return nil, domain.ErrInvalidParams("out_trade_no", "querying a POS order requires `out_trade_no`")
	}

	pc, _, err := merchant(p.cfg, rocket.Params())
	if err != nil {
		return nil, err
	}

	query := url.Values{"mchid": []string{pc.MchID}}
	rocket.SetDestination(http.MethodGet,
		baseURL(pc)+"v3/pay/transactions/out-trade-no/"+url.PathEscape(outTradeNo)+"?"+query.Encode())
	rocket.SetPayload(map[string]any{"mchid": pc.MchID})

	return next(ctx, rocket)
}

// orderNumber reads out_trade_no from the payload seeded by the start plugin, falling
// back to the raw params when the plugin runs on its own.
func orderNumber(rocket *domain.Rocket) string {
	if no := rocket.Payload().String("out_trade_no"); no != "" {
		return no
	}
	return rocket.Params().String("out_trade_no")
}

var (
	_ ports.Plugin = (*CancelPlugin)(nil)
	_ ports.Plugin = (*QueryPlugin)(nil)
)
