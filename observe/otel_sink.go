package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// OtelSink subscribes to a Hub and turns every Event into a standalone span,
// started and ended at delivery and not attached to any caller's trace,
// plus an increment of a per-kind counter, reusing the
// Observer's existing tracer/meter rather than standing up a parallel
// telemetry path.
type OtelSink struct {
	tracer trace.Tracer
	counter metric.Int64Counter
}

// NewOtelSink builds a sink from an Observer's tracer and meter. Returns an
// error only if the underlying counter instrument cannot be created.
func NewOtelSink(obs Observer) (*OtelSink, error) {
	counter, err := obs.Meter().Int64Counter(
		"http.client.events.total",
		metric.WithDescription("Total resilience lifecycle events by kind"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}
	return &OtelSink{tracer: obs.Tracer(), counter: counter}, nil
}

// Attach registers the sink on h for every event kind.
func (s *OtelSink) Attach(h *Hub) {
	h.SubscribeAll(s.record)
}

func (s *OtelSink) record(e Event) {
	ctx := context.Background()
	kind := eventKind(e)

	s.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event.kind", kind),
		attribute.String("event.source", e.Source()),
	))

	_, span := s.tracer.Start(ctx, "resilience."+kind,
		trace.WithAttributes(
			attribute.String("event.source", e.Source()),
			attribute.String("event.timestamp", e.Timestamp().Format("2006-01-02T15:04:05.000Z")),
		),
	)
	span.End()
}

func eventKind(e Event) string {
	switch e.(type) {
	case RetryEvent:
		return "retry"
	case CircuitOpenEvent:
		return "circuit_open"
	case CircuitCloseEvent:
		return "circuit_close"
	case TimeoutEvent:
		return "timeout"
	case FallbackEvent:
		return "fallback"
	case BulkheadRejectedEvent:
		return "bulkhead_rejected"
	case HedgingEvent:
		return "hedging"
	case HedgingOutcomeEvent:
		return "hedging_outcome"
	default:
		return "unknown"
	}
}
