package services

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// authEvents counts auth flow outcomes by event and outcome ("ok", "denied",
// "error"). Both labels come from fixed sets.
var authEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "authapi",
		Name:      "auth_events_total",
		Help:      "Authentication flow outcomes by event.",
	},
	[]string{"event", "outcome"},
)

func init() {
	prometheus.MustRegister(authEvents)
}

const (
	outcomeOK     = "ok"
	outcomeDenied = "denied"
	outcomeError  = "error"
)

// observe records the outcome of event given its returned error.
func observe(event string, err error) {
	switch {
	case err == nil:
		authEvents.WithLabelValues(event, outcomeOK).Inc()
	case isFailure(err):
		authEvents.WithLabelValues(event, outcomeDenied).Inc()
	default:
		authEvents.WithLabelValues(event, outcomeError).Inc()
	}
}

// track starts a span for event and returns the func that ends it. Denials
// are expected outcomes and leave the span status unset.
func track(ctx context.Context, event string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, event, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		observe(event, err)
		if err != nil && !isFailure(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "unexpected error")
		}
		span.End()
	}
}
