package ports

import (
	"context"
	"net/http"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
)

// Logger is the logging capability plugins and subscribers depend on.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// ConfigProvider loads and manages configuration.
// Implementations: file-based (default), static.
type ConfigProvider interface {
	Load(ctx context.Context) (*config.Config, error)
	Watch(ctx context.Context, onChange func(*config.Config)) error
	Close() error
}

// EventDispatcher delivers lifecycle events to subscribers.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.Event) error
}

// Provider is a payment gateway driver: it knows which plugins assemble each of its
// operations and how to verify inbound notifications.
type Provider interface {
	// Name returns the driver name used in configuration and events (wechat, alipay).
	Name() string
	// Operations lists the operations Plugins can build.
	Operations() []string
	// Plugins returns the ordered plugin list for an operation.
	Plugins(operation string) ([]Plugin, error)
	// CallbackPlugins returns the ordered plugin list that verifies and decodes an
	// inbound notification.
	CallbackPlugins() []Plugin
}

// Signer produces and checks signatures for a merchant.
type Signer interface {
	Sign(message []byte) (string, error)
	Verify(message []byte, signature string) error
}

// SignerFactory builds the signer for one merchant secret. field names the config key the
// secret came from.
type SignerFactory func(secret, field string) (Signer, error)

// Parser turns a finished rocket into the caller's result.
type Parser interface {
	Parse(ctx context.Context, rocket *domain.Rocket) (any, error)
}

// HTTPDoer is the transport capability used by the terminal HTTP plugin.
// *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
