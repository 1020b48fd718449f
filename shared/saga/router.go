// Package saga holds the dispatch table every reactor of the choreography is
// built on. There is no orchestrator: each service registers handlers for
// the event types it reacts to and publishes the events that follow.
package saga

import (
	"context"
	"sort"
	"time"

	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var _ events.EventHandler = (*Router)(nil)

// Router dispatches an event to the handler registered for its type
type Router struct {
	name     string
	handlers map[string]events.EventHandler
	journal  events.EventStore
	logger   *zap.Logger
}

type RouterOption func(*Router)

// WithJournal records every consumed event before it is dispatched
func WithJournal(store events.EventStore) RouterOption {
	return func(r *Router) {
		r.journal = store
	}
}

func NewRouter(name string, logger *zap.Logger, opts ...RouterOption) *Router {
	r := &Router{
		name:     name,
		handlers: make(map[string]events.EventHandler),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterHandler binds eventType to handler. Registering a type twice
// replaces the previous handler.
func (r *Router) RegisterHandler(eventType string, handler events.EventHandler) *Router {
	r.handlers[eventType] = handler
	return r
}

// RegisterFunc is RegisterHandler for plain functions
func (r *Router) RegisterFunc(eventType string, fn func(ctx context.Context, event *events.Event) error) *Router {
	return r.RegisterHandler(eventType, events.EventHandlerFunc(fn))
}

// Topics returns the topics the router has handlers for
func (r *Router) Topics() []events.Topic {
	topics := make([]events.Topic, 0, len(r.handlers))
	for t := range r.handlers {
		topics = append(topics, events.Topic(t))
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}

// Handle implements events.EventHandler. A nil return consumes the event, an
// error leaves it to the bus for redelivery.
func (r *Router) Handle(ctx context.Context, event *events.Event) error {
	handler, ok := r.handlers[event.EventType]
	if !ok {
		logging.Debug(ctx, r.logger, "no handler registered",
			zap.String("router", r.name),
			zap.String("event_type", event.EventType),
		)
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "saga.handle "+event.EventType,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("saga.router", r.name),
			attribute.String("event.id", event.ID.String()),
			attribute.String("event.key", event.Key.String()),
		),
	)
	defer span.End()

	start := time.Now()

	if r.journal != nil {
		if err := r.journal.Append(ctx, event); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "journal failed")
			return errors.Wrap(err, "failed to journal consumed event")
		}
	}

	err := handler.Handle(ctx, event)

	outcome := "consumed"
	if err != nil {
		outcome = "redeliver"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.Warn(ctx, r.logger, "event left for redelivery",
			zap.String("router", r.name),
			zap.String("event_type", event.EventType),
			zap.String("event_id", event.ID.String()),
			zap.String("order_id", event.Key.String()),
			zap.Error(err),
		)
	}

	telemetry.RecordCounter(ctx, "saga_events_handled_total", "Events dispatched by saga routers", 1,
		attribute.String("router", r.name),
		attribute.String("event_type", event.EventType),
		attribute.String("outcome", outcome),
	)
	telemetry.RecordHistogram(ctx, "saga_event_handle_duration_seconds", "Saga handler latency", time.Since(start).Seconds(),
		attribute.String("event_type", event.EventType),
	)

	return err
}
