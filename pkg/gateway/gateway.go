// Package gateway provides the public API for embedding the payment gateway.
// This is the stable API for external consumers.
package gateway

import (
	"github.com/tjfontaine/polyglot-pay-gateway/internal/registration"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/runtime"
)

// Gateway is the main entry point for running payment operations.
// See internal/runtime.Gateway for full documentation.
type Gateway = runtime.Gateway

// Option is a functional option for configuring a Gateway.
type Option = runtime.Option

// ErrClosed is returned by a Gateway after Shutdown.
var ErrClosed = runtime.ErrClosed

// New registers the built-in drivers and creates a Gateway with the given options.
// Example:
//
//	gw, err := gateway.New(
//	    gateway.WithFileConfig("config.yaml"),
//	    gateway.WithSQLite("./data/paygate.db"),
//	)
//	result, err := gw.Run(ctx, "wechat", "pos.query", map[string]any{"out_trade_no": "T123"})
func New(opts ...Option) (*Gateway, error) {
	registration.RegisterBuiltins()
	return runtime.New(opts...)
}

// Configuration options
var (
	// Config sources
	WithFileConfig     = runtime.WithFileConfig
	WithConfig         = runtime.WithConfig
	WithConfigProvider = runtime.WithConfigProvider

	// Audit storage
	WithSQLite     = runtime.WithSQLite
	WithAuditStore = runtime.WithAuditStore
	WithoutAudit   = runtime.WithoutAudit

	// Advanced options
	WithHTTPClient = runtime.WithHTTPClient
	WithSubscriber = runtime.WithSubscriber
	WithLogger     = runtime.WithLogger
)
