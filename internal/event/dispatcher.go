// Package event provides the synchronous, priority-ordered event dispatcher that lets
// subscribers observe pipeline progress.
package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

// DefaultPriority is used by subscribers that do not care about ordering.
const DefaultPriority = 0

// FailurePolicy decides what a failing handler does to the emitting pipeline.
type FailurePolicy string

const (
	// FailurePolicyIsolate logs handler failures and keeps going. Default.
	FailurePolicyIsolate FailurePolicy = "isolate"
	// FailurePolicyPropagate runs every handler, then returns their joined errors.
	FailurePolicyPropagate FailurePolicy = "propagate"
)

// ParseFailurePolicy validates a configured policy name. Empty means isolate.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", FailurePolicyIsolate:
		return FailurePolicyIsolate, nil
	case FailurePolicyPropagate:
		return FailurePolicyPropagate, nil
	default:
		return "", fmt.Errorf("invalid failure policy %q (must be 'isolate' or 'propagate')", s)
	}
}

// Handler receives one event.
type Handler func(ctx context.Context, ev domain.Event) error

// Subscription binds a handler to an event kind.
type Subscription struct {
	Kind     domain.EventKind
	Handler  Handler
	Priority int
	// Name is used in failure logs.
	Name string
}

// Subscriber declares its subscriptions once; the table is read when the subscriber is
// added to a dispatcher.
type Subscriber interface {
	Subscriptions() []Subscription
}

type listener struct {
	sub Subscription
	seq int
}

// Dispatcher delivers events to every handler registered for the event's kind, highest
// priority first, in registration order among equal priorities.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[domain.EventKind][]listener
	seq       int

	policy FailurePolicy
	logger *slog.Logger
}

// Option configures a dispatcher.
type Option func(*Dispatcher)

// WithFailurePolicy sets how handler failures are treated.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// WithLogger sets the logger used to report isolated handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		listeners: make(map[domain.EventKind][]listener),
		policy:    FailurePolicyIsolate,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Policy returns the configured failure policy.
func (d *Dispatcher) Policy() FailurePolicy {
	return d.policy
}

// AddSubscriber registers every subscription the subscriber declares.
func (d *Dispatcher) AddSubscriber(s Subscriber) {
	for _, sub := range s.Subscriptions() {
		if sub.Name == "" {
			sub.Name = fmt.Sprintf("%T", s)
		}
		d.Listen(sub)
	}
}

// Listen registers a single subscription.
func (d *Dispatcher) Listen(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	// Copy so concurrent Dispatch calls holding the old slice are unaffected.
	current := d.listeners[sub.Kind]
	updated := make([]listener, len(current), len(current)+1)
	copy(updated, current)
	updated = append(updated, listener{sub: sub, seq: d.seq})

	sort.SliceStable(updated, func(i, j int) bool {
		if updated[i].sub.Priority != updated[j].sub.Priority {
			return updated[i].sub.Priority > updated[j].sub.Priority
		}
		return updated[i].seq < updated[j].seq
	})

	d.listeners[sub.Kind] = updated
}

// HasListeners reports whether any handler is registered for kind.
func (d *Dispatcher) HasListeners(kind domain.EventKind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[kind]) > 0
}

// Dispatch delivers ev synchronously. Under the isolate policy it always returns nil.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) error {
	d.mu.RLock()
	listeners := d.listeners[ev.Kind()]
	d.mu.RUnlock()

	var errs []error
	for _, l := range listeners {
		if err := d.call(ctx, l.sub, ev); err != nil {
			if d.policy == FailurePolicyPropagate {
				errs = append(errs, fmt.Errorf("subscriber %s: %w", l.sub.Name, err))
				continue
			}
			d.logger.Warn("event subscriber failed",
				slog.String("event", string(ev.Kind())),
				slog.String("subscriber", l.sub.Name),
				slog.String("rocket_id", ev.RunID()),
				slog.String("error", err.Error()))
		}
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) call(ctx context.Context, sub Subscription, ev domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sub.Handler(ctx, ev)
}

// Ensure Dispatcher implements the interface.
var _ ports.EventDispatcher = (*Dispatcher)(nil)
