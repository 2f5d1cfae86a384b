// Package tracing mirrors lifecycle events onto the active OpenTelemetry span.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/event"
)

// Priority places span events after logging and before persistence.
const Priority = 128

type Subscriber struct{}

func NewSubscriber() *Subscriber {
	return &Subscriber{}
}

func (s *Subscriber) Subscriptions() []event.Subscription {
	subs := make([]event.Subscription, 0, len(domain.EventKinds))
	for _, kind := range domain.EventKinds {
		subs = append(subs, event.Subscription{
			Kind:     kind,
			Priority: Priority,
			Name:     "trace." + string(kind),
			Handler:  s.annotate,
		})
	}
	return subs
}

func (s *Subscriber) annotate(ctx context.Context, ev domain.Event) error {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return nil
	}

	attrs := []attribute.KeyValue{attribute.String("paygate.rocket_id", ev.RunID())}
	switch e := ev.(type) {
	case domain.PayStarting:
		attrs = append(attrs, attribute.String("paygate.driver", e.Driver), attribute.String("paygate.gateway", e.Gateway))
	case domain.PayStarted:
		attrs = append(attrs, attribute.String("paygate.endpoint", e.Endpoint))
	case domain.PluginAssembling:
		attrs = append(attrs, attribute.String("paygate.plugin", e.Plugin))
	case domain.APIRequesting:
		attrs = append(attrs, attribute.String("paygate.endpoint", e.Endpoint))
	case domain.APIRequested:
		if e.Result != nil {
			attrs = append(attrs, attribute.Int("http.status_code", e.Result.StatusCode))
		}
	case domain.SignFailed:
		span.SetStatus(codes.Error, "signature verification failed")
	}

	span.AddEvent(string(ev.Kind()), trace.WithAttributes(attrs...))
	return nil
}

var _ event.Subscriber = (*Subscriber)(nil)
