// Package container provides the service container that the composition root fills at
// startup and provider factories read while assembling plugins.
//
// The container is not consulted during request processing: factories resolve what they
// need once and pass it to plugin constructors.
package container

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
)

// Capability keys consumed by providers, plugins, and subscribers.
const (
	KeyLogger     = "logger"
	KeyConfig     = "config"
	KeyEvents     = "events"
	KeyHTTPClient = "http_client"
	KeyParsers    = "parsers"
	KeySigner     = "signer"
)

// Factory builds a fresh instance from constructor arguments.
type Factory func(c *Container, args ...any) (any, error)

// Container maps capability keys to shared instances and factories.
type Container struct {
	mu        sync.RWMutex
	instances map[string]any
	factories map[string]Factory
}

// New creates an empty container.
func New() *Container {
	return &Container{
		instances: make(map[string]any),
		factories: make(map[string]Factory),
	}
}

// Set registers a shared instance under key, replacing any previous one.
func (c *Container) Set(key string, instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances[key] = instance
}

// Bind registers a factory used by Make and, lazily, by Get.
func (c *Container) Bind(key string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[key] = f
}

// Has reports whether key resolves to an instance or factory.
func (c *Container) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, inst := c.instances[key]
	_, fact := c.factories[key]
	return inst || fact
}

// Get returns the shared instance for key. When only a factory is bound, the instance
// is built once with no arguments and cached.
func (c *Container) Get(key string) (any, error) {
	c.mu.RLock()
	inst, ok := c.instances[key]
	f, hasFactory := c.factories[key]
	c.mu.RUnlock()

	if ok {
		return inst, nil
	}
	if !hasFactory {
		return nil, domain.ErrServiceNotFound(key)
	}

	built, err := f(c)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.instances[key]; ok {
		return existing, nil
	}
	c.instances[key] = built
	return built, nil
}

// Make builds a new instance for key with args. The result is not cached.
func (c *Container) Make(key string, args ...any) (any, error) {
	c.mu.RLock()
	f, ok := c.factories[key]
	c.mu.RUnlock()

	if !ok {
		return nil, domain.ErrServiceNotFound(key)
	}
	inst, err := f(c, args...)
	if err != nil {
		return nil, fmt.Errorf("make %s: %w", key, err)
	}
	return inst, nil
}

// Resolve fetches key and asserts it to T.
func Resolve[T any](c *Container, key string) (T, error) {
	var zero T
	inst, err := c.Get(key)
	if err != nil {
		return zero, err
	}
	v, ok := inst.(T)
	if !ok {
		return zero, domain.NewError(domain.ErrorTypeServiceNotFound,
			fmt.Sprintf("service %q has type %T", key, inst)).
			WithCode(domain.ErrorCodeContainerNotBound).
			WithField(key)
	}
	return v, nil
}

// Logger resolves the logger capability.
func Logger(c *Container) (*slog.Logger, error) {
	return Resolve[*slog.Logger](c, KeyLogger)
}

// Config resolves the configuration capability.
func Config(c *Container) (*config.Config, error) {
	return Resolve[*config.Config](c, KeyConfig)
}

// Dispatcher resolves the event dispatcher.
func Dispatcher(c *Container) (ports.EventDispatcher, error) {
	return Resolve[ports.EventDispatcher](c, KeyEvents)
}

// HTTPClient resolves the outbound HTTP transport.
func HTTPClient(c *Container) (ports.HTTPDoer, error) {
	return Resolve[ports.HTTPDoer](c, KeyHTTPClient)
}

// MakeSigner builds a merchant signer through the factory bound to KeySigner.
func MakeSigner(c *Container, secret, field string) (ports.Signer, error) {
	inst, err := c.Make(KeySigner, secret, field)
	if err != nil {
		return nil, err
	}
	s, ok := inst.(ports.Signer)
	if !ok {
		return nil, domain.NewError(domain.ErrorTypeServiceNotFound,
			fmt.Sprintf("service %q built %T", KeySigner, inst)).
			WithCode(domain.ErrorCodeContainerNotBound).
			WithField(KeySigner)
	}
	return s, nil
}

// SignerFactory returns a factory that defers to MakeSigner, or fallback when no signer
// factory is bound.
func SignerFactory(c *Container, fallback ports.SignerFactory) ports.SignerFactory {
	if !c.Has(KeySigner) {
		return fallback
	}
	return func(secret, field string) (ports.Signer, error) {
		return MakeSigner(c, secret, field)
	}
}

// Ensure *http.Client satisfies the transport capability.
var _ ports.HTTPDoer = (*http.Client)(nil)
