// Package ports defines the core interfaces for the gateway.
// This file contains the plugin contract used by the pipeline executor.
package ports

import (
	"context"
	"fmt"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
)

// Next runs the remainder of the plugin chain and returns the (possibly further
// mutated) rocket.
type Next func(ctx context.Context, rocket *domain.Rocket) (*domain.Rocket, error)

// Plugin is one stage of request assembly.
//
// A plugin either calls next exactly once and returns what it returned, or does not
// call it at all (short-circuit). Calling next more than once is a defect.
type Plugin interface {
	Assemble(ctx context.Context, rocket *domain.Rocket, next Next) (*domain.Rocket, error)
}

// Named is implemented by plugins that report a stable name for events and errors.
type Named interface {
	Name() string
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc func(ctx context.Context, rocket *domain.Rocket, next Next) (*domain.Rocket, error)

// Assemble calls f.
func (f PluginFunc) Assemble(ctx context.Context, rocket *domain.Rocket, next Next) (*domain.Rocket, error) {
	return f(ctx, rocket, next)
}

// PluginName returns the plugin's Name when it implements Named, otherwise its Go type.
func PluginName(p Plugin) string {
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}

// PipelineExecutor runs a prebuilt plugin chain.
type PipelineExecutor interface {
	Run(ctx context.Context, rocket *domain.Rocket) (*domain.Rocket, error)
}
