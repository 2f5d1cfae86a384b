// Package storage selects the audit store backend from configuration.
package storage

import (
	"fmt"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/storage/memory"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/storage/sqlite"
)

// Open returns the configured audit store, or nil when storage is disabled.
func Open(cfg config.StorageConfig) (ports.AuditStore, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		path := cfg.SQLite.Path
		if path == "" {
			path = "paygate.db"
		}
		store, err := sqlite.New(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q (must be 'sqlite', 'memory' or 'none')", cfg.Type)
	}
}
