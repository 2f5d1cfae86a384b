// Package registry provides payment driver factory registration and lookup.
//
// # Adding a New Driver
//
// Each driver package exposes a Register function that is called from
// internal/registration:
//
//	func Register() {
//	    registry.RegisterFactory(registry.ProviderFactory{
//	        Type:           Driver,
//	        Description:    "Example Pay v2",
//	        Create:         New,
//	        ValidateConfig: ValidateConfig,
//	    })
//	}
//
// Factories receive the service container and resolve everything their plugins need
// once, at assembly time.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/container"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
)

// ProviderFactory defines how to create a payment driver.
type ProviderFactory struct {
	// Type is the driver name used in configuration and requests (wechat, alipay)
	Type string

	// Description provides a human-readable description of the driver
	Description string

	// Create builds the driver and its plugin lists from the container.
	Create func(c *container.Container) (ports.Provider, error)

	// ValidateConfig checks the merchant profiles configured for this driver.
	// Optional: if nil, no additional validation is performed.
	ValidateConfig func(cfg *config.Config) error
}

// factoryRegistry holds registered provider factories
var (
	factoryMu   sync.RWMutex
	factoryMap  = make(map[string]ProviderFactory)
	factoryList []ProviderFactory
)

// RegisterFactory registers a driver factory.
// Panics if a factory with the same type is already registered.
func RegisterFactory(f ProviderFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	if f.Type == "" {
		panic("provider factory type cannot be empty")
	}
	if f.Create == nil {
		panic(fmt.Sprintf("provider factory %q must have a Create function", f.Type))
	}

	if _, exists := factoryMap[f.Type]; exists {
		panic(fmt.Sprintf("provider factory %q already registered", f.Type))
	}

	factoryMap[f.Type] = f
	factoryList = append(factoryList, f)
}

// GetFactory returns the factory for a driver, if registered.
func GetFactory(providerType string) (ProviderFactory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factoryMap[providerType]
	return f, ok
}

// ListFactories returns all registered factories sorted by type.
func ListFactories() []ProviderFactory {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	result := make([]ProviderFactory, len(factoryList))
	copy(result, factoryList)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Type < result[j].Type
	})
	return result
}

// ListProviderTypes returns all registered driver names.
func ListProviderTypes() []string {
	factories := ListFactories()
	types := make([]string, len(factories))
	for i, f := range factories {
		types[i] = f.Type
	}
	return types
}

// IsRegistered returns true if a driver is registered.
func IsRegistered(providerType string) bool {
	_, ok := GetFactory(providerType)
	return ok
}

// Create builds one driver using its registered factory.
func Create(providerType string, c *container.Container) (ports.Provider, error) {
	f, ok := GetFactory(providerType)
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s (registered types: %v)", providerType, ListProviderTypes())
	}

	if f.ValidateConfig != nil {
		cfg, err := container.Config(c)
		if err != nil {
			return nil, err
		}
		if err := f.ValidateConfig(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration for provider type %s: %w", providerType, err)
		}
	}

	return f.Create(c)
}

// CreateAll builds every registered driver, sorted by type.
func CreateAll(c *container.Container) ([]ports.Provider, error) {
	var providers []ports.Provider
	for _, f := range ListFactories() {
		p, err := Create(f.Type, c)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// ClearFactories removes all registered factories (for testing only).
func ClearFactories() {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	factoryMap = make(map[string]ProviderFactory)
	factoryList = nil
}
