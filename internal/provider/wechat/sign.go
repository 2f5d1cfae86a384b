package wechat

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/sign"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/plugin"
)

// AuthScheme prefixes the Authorization header of signed requests.
const AuthScheme = "WECHATPAY2-HMAC-SHA256"

// Response and notification signature headers.
const (
	HeaderTimestamp = "Wechatpay-Timestamp"
	HeaderNonce     = "Wechatpay-Nonce"
	HeaderSignature = "Wechatpay-Signature"
)

// SignPlugin adds the Authorization header over method, path, timestamp, nonce and body.
type SignPlugin struct {
	cfg       *config.Config
	newSigner ports.SignerFactory
	now       func() time.Time
	nonce     func() string
}

// NewSignPlugin creates the request signer. A nil newSigner uses sign.NewSigner.
func NewSignPlugin(cfg *config.Config, newSigner ports.SignerFactory) *SignPlugin {
	if newSigner == nil {
		newSigner = sign.NewSigner
	}
	return &SignPlugin{
		cfg:       cfg,
		newSigner: newSigner,
		now:       time.Now,
		nonce: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

func (p *SignPlugin) Name() string { return "wechat.sign" }

func (p *SignPlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	dest := rocket.Destination()
	if dest == nil {
		return nil, domain.ErrInvalidParams("_url", "cannot sign a request without a destination").WithStage(p.Name())
	}

	signer, pc, err := merchantSigner(p.newSigner, p.cfg, rocket.Params())
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(dest.URL)
	if err != nil {
		return nil, domain.ErrInvalidParams("_url", "destination is not a valid URL").WithCause(err)
	}

	timestamp := strconv.FormatInt(p.now().Unix(), 10)
	nonce := p.nonce()
	signature, err := signer.Sign(RequestMessage(dest.Method, u.RequestURI(), timestamp, nonce, rocket.Body))
	if err != nil {
		return nil, err
	}

	rocket.Headers.Set("Authorization", fmt.Sprintf(`%s mchid="%s",nonce_str="%s",timestamp="%s",signature="%s"`,
		AuthScheme, pc.MchID, nonce, timestamp, signature))

	return next(ctx, rocket)
}

// RequestMessage builds the canonical string signed for an outbound request.
func RequestMessage(method, requestURI, timestamp, nonce, body string) []byte {
	return []byte(method + "\n" + requestURI + "\n" + timestamp + "\n" + nonce + "\n" + body + "\n")
}

// ResponseMessage builds the canonical string the gateway signs for responses and
// notifications.
func ResponseMessage(timestamp, nonce string, body []byte) []byte {
	return []byte(timestamp + "\n" + nonce + "\n" + string(body) + "\n")
}

// NewVerifyResponsePlugin verifies the signature headers on gateway responses.
func NewVerifyResponsePlugin(cfg *config.Config, events ports.EventDispatcher, newSigner ports.SignerFactory) ports.Plugin {
	return plugin.NewTenantVerifyPlugin("wechat.verify_response", tenantSigner(cfg, newSigner), events, responseSignature)
}

// NewVerifyCallbackPlugin verifies the signature headers on inbound notifications.
func NewVerifyCallbackPlugin(cfg *config.Config, events ports.EventDispatcher, newSigner ports.SignerFactory) ports.Plugin {
	return plugin.NewTenantVerifyPlugin("wechat.verify_callback", tenantSigner(cfg, newSigner), events, callbackSignature)
}

func tenantSigner(cfg *config.Config, newSigner ports.SignerFactory) plugin.SignerFunc {
	if newSigner == nil {
		newSigner = sign.NewSigner
	}
	return func(rocket *domain.Rocket) (ports.Signer, error) {
		signer, _, err := merchantSigner(newSigner, cfg, rocket.Params())
		if err != nil {
			return nil, err
		}
		return signer, nil
	}
}

func responseSignature(rocket *domain.Rocket) ([]byte, string, bool) {
	if rocket.Response == nil {
		return nil, "", false
	}
	h := rocket.Response.Header
	return ResponseMessage(h.Get(HeaderTimestamp), h.Get(HeaderNonce), rocket.Response.Body), h.Get(HeaderSignature), true
}

func callbackSignature(rocket *domain.Rocket) ([]byte, string, bool) {
	h := rocket.Headers
	return ResponseMessage(h.Get(HeaderTimestamp), h.Get(HeaderNonce), []byte(rocket.Body)), h.Get(HeaderSignature), true
}

func merchantSigner(newSigner ports.SignerFactory, cfg *config.Config, params domain.Collection) (ports.Signer, config.ProviderConfig, error) {
	pc, tenant, err := merchant(cfg, params)
	if err != nil {
		return nil, pc, err
	}
	signer, err := newSigner(pc.MchSecretKey, fmt.Sprintf("providers.%s.%s.mch_secret_key", Driver, tenant))
	if err != nil {
		return nil, pc, err
	}
	return signer, pc, nil
}

var _ ports.Plugin = (*SignPlugin)(nil)
