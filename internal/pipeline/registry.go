package pipeline

import (
	"fmt"
	"sort"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

// Key identifies one plugin list.
type Key struct {
	Driver    string
	Operation string
}

func (k Key) String() string {
	return k.Driver + "." + k.Operation
}

// Registry holds the prebuilt executors for every provider operation.
// It is filled once by BuildRegistry and only read afterwards.
type Registry struct {
	executors map[Key]*Executor
	callbacks map[string]*Executor
}

// BuildRegistry composes one executor per provider operation plus one callback executor
// per provider.
func BuildRegistry(providers []ports.Provider, opts ...ExecutorOption) (*Registry, error) {
	r := &Registry{
		executors: make(map[Key]*Executor),
		callbacks: make(map[string]*Executor),
	}

	for _, p := range providers {
		if _, exists := r.callbacks[p.Name()]; exists {
			return nil, fmt.Errorf("provider %s registered twice", p.Name())
		}

		for _, op := range p.Operations() {
			plugins, err := p.Plugins(op)
			if err != nil {
				return nil, fmt.Errorf("provider %s operation %s: %w", p.Name(), op, err)
			}
			r.executors[Key{Driver: p.Name(), Operation: op}] = NewExecutor(plugins, opts...)
		}

		r.callbacks[p.Name()] = NewExecutor(p.CallbackPlugins(), opts...)
	}

	return r, nil
}

// Executor returns the executor for driver/operation.
func (r *Registry) Executor(driver, operation string) (*Executor, error) {
	e, ok := r.executors[Key{Driver: driver, Operation: operation}]
	if !ok {
		return nil, domain.ErrUnknownOperation(driver, operation)
	}
	return e, nil
}

// CallbackExecutor returns the notification-verification executor for driver.
func (r *Registry) CallbackExecutor(driver string) (*Executor, error) {
	e, ok := r.callbacks[driver]
	if !ok {
		return nil, domain.ErrUnknownOperation(driver, "callback")
	}
	return e, nil
}

// Keys returns every registered driver/operation pair, sorted.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.executors))
	for k := range r.executors {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}
