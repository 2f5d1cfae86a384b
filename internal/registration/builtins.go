package registration

import (
	"sync"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/provider/alipay"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/provider/wechat"
)

var once sync.Once

// RegisterBuiltins registers the built-in payment drivers explicitly.
// This replaces init-based side effects and is intended to be called from
// cmd/paygate and tests before the gateway builds its plugin registry.
// Repeated calls are no-ops.
func RegisterBuiltins() {
	once.Do(RegisterProviderBuiltins)
}

// RegisterProviderBuiltins registers built-in drivers only.
func RegisterProviderBuiltins() {
	wechat.Register()
	alipay.Register()
}
