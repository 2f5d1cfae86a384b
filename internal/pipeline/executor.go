package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

// Executor runs a plugin chain that was composed once at construction time.
type Executor struct {
	plugins []ports.Plugin
	chain   ports.Next
	events  ports.EventDispatcher
}

// ExecutorOption configures an executor.
type ExecutorOption func(*Executor)

// WithDispatcher makes the executor emit a plugin.assembling event before each plugin runs.
func WithDispatcher(d ports.EventDispatcher) ExecutorOption {
	return func(e *Executor) {
		e.events = d
	}
}

// NewExecutor composes plugins into a single continuation chain.
//
// The chain is folded right to left so that invoking it runs plugins in declared order;
// the continuation after the last plugin returns the rocket unchanged.
func NewExecutor(plugins []ports.Plugin, opts ...ExecutorOption) *Executor {
	e := &Executor{
		plugins: append([]ports.Plugin(nil), plugins...),
	}
	for _, opt := range opts {
		opt(e)
	}

	next := ports.Next(func(_ context.Context, rocket *domain.Rocket) (*domain.Rocket, error) {
		return rocket, nil
	})
	for i := len(e.plugins) - 1; i >= 0; i-- {
		next = e.link(e.plugins[i], next)
	}
	e.chain = next

	return e
}

// link returns the continuation that runs p with next as its remainder.
func (e *Executor) link(p ports.Plugin, next ports.Next) ports.Next {
	name := ports.PluginName(p)
	return func(ctx context.Context, rocket *domain.Rocket) (*domain.Rocket, error) {
		if e.events != nil {
			err := e.events.Dispatch(ctx, domain.PluginAssembling{
				Rocket:  rocket.ID,
				Driver:  rocket.Driver,
				Gateway: rocket.Operation,
				Plugin:  name,
			})
			if err != nil {
				return nil, &StageError{Plugin: name, Err: err}
			}
		}

		out, err := p.Assemble(ctx, rocket, next)
		if err != nil {
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				return nil, err
			}
			return nil, &StageError{Plugin: name, Err: err}
		}
		return out, nil
	}
}

// Run executes the chain against rocket.
func (e *Executor) Run(ctx context.Context, rocket *domain.Rocket) (*domain.Rocket, error) {
	return e.chain(ctx, rocket)
}

// Len returns the number of plugins in the chain.
func (e *Executor) Len() int {
	return len(e.plugins)
}

// Execute composes plugins and runs them once against rocket.
// An empty plugin list returns rocket unchanged.
func Execute(ctx context.Context, plugins []ports.Plugin, rocket *domain.Rocket, opts ...ExecutorOption) (*domain.Rocket, error) {
	return NewExecutor(plugins, opts...).Run(ctx, rocket)
}

// StageError identifies the plugin that failed a pipeline run.
type StageError struct {
	Plugin string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Plugin, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsStageError returns true if err carries a failing plugin name.
func IsStageError(err error) bool {
	var stageErr *StageError
	return errors.As(err, &stageErr)
}

// FailedPlugin returns the name of the plugin that failed, or "" when err did not
// come from a pipeline run.
func FailedPlugin(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Plugin
	}
	return ""
}

// Ensure Executor implements the interface.
var _ ports.PipelineExecutor = (*Executor)(nil)
