// Package audit provides an event subscriber that persists every lifecycle event to an
// audit store.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/event"
)

// Subscriber implements event.Subscriber by writing directly to storage.
// This is the default for single-instance deployments.
type Subscriber struct {
	store ports.AuditStore
	now   func() time.Time
}

// NewSubscriber creates a new audit subscriber.
func NewSubscriber(store ports.AuditStore) (*Subscriber, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store required")
	}
	return &Subscriber{store: store, now: time.Now}, nil
}

// Subscriptions registers for every event kind at default priority.
func (s *Subscriber) Subscriptions() []event.Subscription {
	subs := make([]event.Subscription, 0, len(domain.EventKinds))
	for _, kind := range domain.EventKinds {
		subs = append(subs, event.Subscription{
			Kind:     kind,
			Priority: event.DefaultPriority,
			Name:     "audit." + string(kind),
			Handler:  s.record,
		})
	}
	return subs
}

func (s *Subscriber) record(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Kind(), err)
	}

	rec := &domain.AuditRecord{
		RocketID:  ev.RunID(),
		Kind:      ev.Kind(),
		Data:      data,
		CreatedAt: s.now(),
	}

	switch e := ev.(type) {
	case domain.PayStarting:
		rec.Driver, rec.Gateway = e.Driver, e.Gateway
	case domain.PayStarted:
		rec.Driver, rec.Gateway, rec.Endpoint = e.Driver, e.Gateway, e.Endpoint
	case domain.PluginAssembling:
		rec.Driver, rec.Gateway = e.Driver, e.Gateway
	case domain.APIRequesting:
		rec.Driver, rec.Endpoint = e.Driver, e.Endpoint
	case domain.APIRequested:
		rec.Driver = e.Driver
	case domain.SignFailed:
		rec.Driver = e.Driver
	case domain.RequestReceived:
		rec.Driver = e.Driver
	case domain.MethodCalled:
		rec.Driver, rec.Gateway, rec.Endpoint = e.Driver, e.Gateway, e.Endpoint
	}

	return s.store.Append(ctx, rec)
}

var _ event.Subscriber = (*Subscriber)(nil)
