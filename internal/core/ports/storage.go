package ports

import (
	"context"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
)

// AuditStore persists lifecycle events.
// Implementations: SQLite (default), in-memory.
type AuditStore interface {
	// Append stores one record.
	Append(ctx context.Context, record *domain.AuditRecord) error

	// List returns records matching opts, oldest first.
	List(ctx context.Context, opts AuditListOptions) ([]*domain.AuditRecord, error)

	// Close closes the storage connection
	Close() error
}

// AuditListOptions filters List results.
type AuditListOptions struct {
	RocketID string
	Driver   string
	Kind     domain.EventKind
	Limit    int
}
