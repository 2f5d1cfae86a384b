package alipay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
)

// SignType is sent in sign_type on every request.
const SignType = "HMAC-SHA256"

// PreparePlugin adds the common request parameters and points the rocket at the gateway.
type PreparePlugin struct {
	cfg *config.Config
	now func() time.Time
}

func NewPreparePlugin(cfg *config.Config) *PreparePlugin {
	return &PreparePlugin{cfg: cfg, now: time.Now}
}

func (p *PreparePlugin) Name() string { return "alipay.prepare" }

func (p *PreparePlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	pc, _, err := merchant(p.cfg, rocket.Params())
	if err != nil {
		return nil, err
	}

	common := map[string]any{
		"app_id":    pc.AppID,
		"format":    "JSON",
		"charset":   "utf-8",
		"sign_type": SignType,
		"timestamp": p.now().Format("2006-01-02 15:04:05"),
		"version":   "1.0",
	}
	if pc.NotifyURL != "" {
		common["notify_url"] = pc.NotifyURL
	}
	if pc.ReturnURL != "" && rocket.Direction() == domain.DirectionResponse {
		common["return_url"] = pc.ReturnURL
	}
	rocket.MergePayload(common)
	rocket.SetDestination(http.MethodPost, gatewayURL(pc))

	return next(ctx, rocket)
}

// SignPlugin signs the sorted request parameters and encodes them as the form body.
type SignPlugin struct {
	cfg       *config.Config
	newSigner ports.SignerFactory
}

// NewSignPlugin creates the request signer. A nil newSigner uses sign.NewSigner.
func NewSignPlugin(cfg *config.Config, newSigner ports.SignerFactory) *SignPlugin {
	return &SignPlugin{cfg: cfg, newSigner: newSigner}
}

func (p *SignPlugin) Name() string { return "alipay.sign" }

func (p *SignPlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	signer, err := tenantSigner(p.cfg, p.newSigner)(rocket)
	if err != nil {
		return nil, err
	}

	form, err := FormValues(rocket.Payload())
	if err != nil {
		return nil, err
	}
	signature, err := signer.Sign(SigningContent(form))
	if err != nil {
		return nil, err
	}

	rocket.MergePayload(map[string]any{"sign": signature})
	form.Set("sign", signature)
	rocket.Body = form.Encode()
	rocket.Headers.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	return next(ctx, rocket)
}

// FormValues flattens the payload into request parameters. Nested values are encoded as
// JSON.
func FormValues(payload domain.Collection) (url.Values, error) {
	form := url.Values{}
	for k, v := range payload {
		switch val := v.(type) {
		case string:
			form.Set(k, val)
		case map[string]any, domain.Collection, []any:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, domain.ErrInvalidParams(k, "value cannot be encoded as JSON").WithCause(err)
			}
			form.Set(k, string(b))
		default:
			form.Set(k, fmt.Sprint(val))
		}
	}
	return form, nil
}

// SigningContent joins the non-empty parameters, except sign, as sorted k=v pairs.
func SigningContent(form url.Values) []byte {
	keys := make([]string, 0, len(form))
	for k := range form {
		if k == "sign" || form.Get(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + form.Get(k)
	}
	return []byte(strings.Join(pairs, "&"))
}

var (
	_ ports.Plugin = (*PreparePlugin)(nil)
	_ ports.Plugin = (*SignPlugin)(nil)
)
