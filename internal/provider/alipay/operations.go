package alipay

import (
	"context"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/plugin"
)

// bizContent returns the business fields gathered so far. When the start plugin did not
// run, the caller's params are used directly.
func bizContent(rocket *domain.Rocket) domain.Collection {
	if len(rocket.Payload()) > 0 {
		return rocket.Payload().Clone()
	}
	return domain.NewCollection(plugin.FilterParams(rocket.Params()))
}

// shape wraps biz into biz_content under the API method name.
func shape(rocket *domain.Rocket, method string, biz domain.Collection, defaults map[string]any) {
	for k, v := range defaults {
		if !biz.Has(k) {
			biz[k] = v
		}
	}
	rocket.SetPayload(map[string]any{
		"method":      method,
		"biz_content": map[string]any(biz),
	})
}

// TransPagePayPlugin shapes a page-based fund transfer. The result is an HTML form, so
// the run ends without a network call.
//
// https://opendocs.alipay.com/open/03rbyf
type TransPagePayPlugin struct{}

func (TransPagePayPlugin) Name() string { return "alipay.fund.trans.page.pay" }

func (TransPagePayPlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	rocket.SetDirection(domain.DirectionResponse)
	shape(rocket, "alipay.fund.trans.page.pay", bizContent(rocket), map[string]any{
		"product_code": "STD_APP_TRANSFER",
		"biz_scene":    "PERSONAL_PAY",
	})
	return next(ctx, rocket)
}

// TradeQueryPlugin shapes a trade lookup by merchant or Alipay order number.
//
// https://opendocs.alipay.com/open/02e7gm
type TradeQueryPlugin struct{}

func (TradeQueryPlugin) Name() string { return "alipay.trade.query" }

func (TradeQueryPlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	biz := bizContent(rocket)
	if !biz.Has("out_trade_no") && !biz.Has("trade_no") {
		return nil, domain.ErrInvalidParams("out_trade_no", "querying a trade requires `out_trade_no` or `trade_no`")
	}
	shape(rocket, "alipay.trade.query", biz, nil)
	return next(ctx, rocket)
}

var (
	_ ports.Plugin = TransPagePayPlugin{}
	_ ports.Plugin = TradeQueryPlugin{}
)
