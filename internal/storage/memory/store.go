// Package memory provides an in-process audit store for tests and single-run CLI use.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

// Store is an in-memory implementation of ports.AuditStore.
type Store struct {
	mu      sync.RWMutex
	records []*domain.AuditRecord
}

// New creates a new in-memory store
func New() *Store {
	return &Store{}
}

func (s *Store) Append(ctx context.Context, record *domain.AuditRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	cp := *record
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, &cp)
	return nil
}

func (s *Store) List(ctx context.Context, opts ports.AuditListOptions) ([]*domain.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.AuditRecord
	for _, r := range s.records {
		if opts.RocketID != "" && r.RocketID != opts.RocketID {
			continue
		}
		if opts.Driver != "" && r.Driver != opts.Driver {
			continue
		}
		if opts.Kind != "" && r.Kind != opts.Kind {
			continue
		}
		cp := *r
		out = append(out, &cp)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}

var _ ports.AuditStore = (*Store)(nil)
