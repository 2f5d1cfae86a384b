// Package logging provides the event subscriber that writes one structured log line per
// lifecycle event.
package logging

import (
	"context"
	"log/slog"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/event"
)

// Priority runs the log subscriber ahead of default-priority subscribers.
const Priority = 256

// Subscriber logs lifecycle events. Request and response details go to debug, run
// milestones to info and signature failures to warn.
type Subscriber struct {
	logger ports.Logger
}

// NewSubscriber creates a log subscriber. A nil logger uses slog.Default.
func NewSubscriber(logger ports.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{logger: logger}
}

func (s *Subscriber) Subscriptions() []event.Subscription {
	return []event.Subscription{
		{Kind: domain.EventPayStarting, Priority: Priority, Name: "log.pay_starting", Handler: s.payStarting},
		{Kind: domain.EventPayStarted, Priority: Priority, Name: "log.pay_started", Handler: s.payStarted},
		{Kind: domain.EventAPIRequesting, Priority: Priority, Name: "log.api_requesting", Handler: s.apiRequesting},
		{Kind: domain.EventAPIRequested, Priority: Priority, Name: "log.api_requested", Handler: s.apiRequested},
		{Kind: domain.EventSignFailed, Priority: Priority, Name: "log.sign_failed", Handler: s.signFailed},
		{Kind: domain.EventRequestReceived, Priority: Priority, Name: "log.request_received", Handler: s.requestReceived},
		{Kind: domain.EventMethodCalled, Priority: Priority, Name: "log.method_called", Handler: s.methodCalled},
	}
}

func (s *Subscriber) payStarting(ctx context.Context, ev domain.Event) error {
	e := ev.(domain.PayStarting)
	s.logger.Debug("payment starting",
		slog.String("driver", e.Driver),
		slog.String("gateway", e.Gateway),
		slog.String("rocket_id", e.Rocket),
		slog.Any("params", redact(e.Params)))
	return nil
}

func (s *Subscriber) payStarted(ctx context.Context, ev domain.Event) error {
	e := ev.(domain.PayStarted)
	s.logger.Info("payment request assembled",
		slog.String("driver", e.Driver),
		slog.String("gateway", e.Gateway),
		slog.String("rocket_id", e.Rocket),
		slog.String("endpoint", e.Endpoint),
		slog.Any("payload", redact(e.Payload)))
	return nil
}

func (s *Subscriber) apiRequesting(ctx context.Context, ev domain.Event) error {
	e := ev.(domain.APIRequesting)
	s.logger.Debug("requesting gateway api",
		slog.String("driver", e.Driver),
		slog.String("rocket_id", e.Rocket),
		slog.String("endpoint", e.Endpoint),
		slog.Any("payload", redact(e.Payload)))
	return nil
}

func (s *Subscriber) apiRequested(ctx context.Context, ev domain.Event) error {
	e := ev.(domain.APIRequested)
	attrs := []any{
		slog.String("driver", e.Driver),
		slog.String("rocket_id", e.Rocket),
	}
	if e.Result != nil {
		attrs = append(attrs,
			slog.Int("status", e.Result.StatusCode),
			slog.Int("body_bytes", len(e.Result.Body)))
	}
	s.logger.Debug("gateway api answered", attrs...)
	return nil
}

func (s *Subscriber) signFailed(ctx context.Context, ev domain.Event) error {
	e := ev.(domain.SignFailed)
	s.logger.Warn("gateway signature verification failed",
		slog.String("driver", e.Driver),
		slog.String("rocket_id", e.Rocket),
		slog.Any("data", e.Data))
	return nil
}

func (s *Subscriber) requestReceived(ctx context.Context, ev domain.Event) error {
	e := ev.(domain.RequestReceived)
	s.logger.Info("gateway notification received",
		slog.String("driver", e.Driver),
		slog.String("rocket_id", e.Rocket),
		slog.Any("data", e.Data))
	return nil
}

func (s *Subscriber) methodCalled(ctx context.Context, ev domain.Event) error {
	e := ev.(domain.MethodCalled)
	s.logger.Info("payment method completed",
		slog.String("driver", e.Driver),
		slog.String("gateway", e.Gateway),
		slog.String("rocket_id", e.Rocket),
		slog.String("endpoint", e.Endpoint),
		slog.Any("payload", redact(e.Payload)))
	return nil
}

// secretKeys never reach the log.
var secretKeys = map[string]bool{
	"sign":           true,
	"mch_secret_key": true,
	"app_secret_key": true,
}

func redact(c domain.Collection) map[string]any {
	out := make(map[string]any, len(c))
	for k, v := range c {
		if secretKeys[k] {
			out[k] = "[redacted]"
			continue
		}
		out[k] = v
	}
	return out
}

var _ event.Subscriber = (*Subscriber)(nil)
