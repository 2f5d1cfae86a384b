package runtime

import (
	"fmt"
	"log/slog"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/adapters/config/file"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/adapters/config/static"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/event"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/storage/sqlite"
)

// Option is a functional option for configuring a Gateway.
type Option func(*Gateway) error

// WithFileConfig uses file-based configuration with hot-reload (default).
// The path should point to a config.yaml file that will be watched for changes.
func WithFileConfig(path string) Option {
	return func(g *Gateway) error {
		provider, err := file.NewProvider(path, file.WithLogger(g.logger))
		if err != nil {
			return fmt.Errorf("create file config provider: %w", err)
		}
		g.config = provider
		return nil
	}
}

// WithConfig uses a fixed, already loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(g *Gateway) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		g.config = static.NewProvider(cfg)
		return nil
	}
}

// WithConfigProvider sets a custom config provider.
// For advanced use cases where you need full control over config loading.
func WithConfigProvider(provider ports.ConfigProvider) Option {
	return func(g *Gateway) error {
		g.config = provider
		return nil
	}
}

// WithSQLite persists the audit trail to a SQLite database, overriding storage.type.
func WithSQLite(path string) Option {
	return func(g *Gateway) error {
		store, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("create sqlite storage: %w", err)
		}
		g.store = store
		g.ownsStore = true
		return nil
	}
}

// WithAuditStore sets a custom audit store. The caller keeps ownership and closes it.
func WithAuditStore(store ports.AuditStore) Option {
	return func(g *Gateway) error {
		g.store = store
		g.ownsStore = false
		return nil
	}
}

// WithoutAudit disables event persistence regardless of storage.type.
func WithoutAudit() Option {
	return func(g *Gateway) error {
		g.noAudit = true
		return nil
	}
}

// WithHTTPClient replaces the outbound transport used by the terminal HTTP plugin.
func WithHTTPClient(client ports.HTTPDoer) Option {
	return func(g *Gateway) error {
		g.httpClient = client
		return nil
	}
}

// WithSubscriber registers an additional event subscriber. It is re-registered on every
// configuration reload.
func WithSubscriber(s event.Subscriber) Option {
	return func(g *Gateway) error {
		g.subscribers = append(g.subscribers, s)
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}
