// Package event delivers enrollment domain events to in-process handlers
// such as the audit log and workflow metrics.
package event

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/schoolops/enrollment/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// subscription is one handler and the event types it receives.
// An empty type list receives everything.
type subscription struct {
	handler shared.EventHandler
	types   []string
}

func (s subscription) wants(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// InMemoryEventBus dispatches events synchronously, in subscription order.
// A failing or panicking handler never stops the others; failures are logged
// and returned joined.
type InMemoryEventBus struct {
	logger *zap.Logger

	mu   sync.RWMutex
	subs []subscription

	running   atomic.Bool
	published atomic.Int64
	failed    atomic.Int64
}

// Stats counts events since the bus was created
type Stats struct {
	Published       int64
	HandlerFailures int64
	Subscribers     int
}

// NewInMemoryEventBus creates a bus with no subscribers
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{logger: logger.Named("event_bus")}
}

// Subscribe adds handler for eventTypes, or for the handler's own EventTypes
// when none are given. Subscribing the same handler again replaces its types.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	sub := subscription{handler: handler, types: slices.Clone(eventTypes)}

	b.mu.Lock()
	if i := b.indexLocked(handler); i >= 0 {
		b.subs[i] = sub
	} else {
		b.subs = append(b.subs, sub)
	}
	b.mu.Unlock()

	b.logger.Debug("handler subscribed",
		zap.String("handler", handlerName(handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexLocked(handler); i >= 0 {
		b.subs = slices.Delete(b.subs, i, i+1)
	}
}

func (b *InMemoryEventBus) indexLocked(handler shared.EventHandler) int {
	return slices.IndexFunc(b.subs, func(s subscription) bool { return s.handler == handler })
}

// Publish delivers each event to every interested handler
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	var errs []error
	for _, event := range events {
		b.published.Add(1)
		for _, sub := range subs {
			if !sub.wants(event.EventType()) {
				continue
			}
			if err := b.deliver(ctx, sub.handler, event); err != nil {
				b.failed.Add(1)
				b.logger.Error("handler failed to process event",
					zap.String("handler", handlerName(sub.handler)),
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("aggregate_id", event.AggregateID().String()),
					zap.Error(err),
				)
				errs = append(errs, fmt.Errorf("%s: %w", event.EventType(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// deliver runs one handler under its own span and turns a panic into an error
func (b *InMemoryEventBus) deliver(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "event."+event.EventType(),
		telemetry.ApplicationID(event.AggregateID()),
		attribute.String("event.handler", handlerName(handler)),
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
		telemetry.EndSpan(span, err)
	}()
	return handler.Handle(ctx, event)
}

// Start marks the bus as running
func (b *InMemoryEventBus) Start(context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Int("subscribers", b.Stats().Subscribers))
	return nil
}

// Stop marks the bus as stopped. Dispatch is synchronous, so nothing is in
// flight once the callers of Publish have returned.
func (b *InMemoryEventBus) Stop(context.Context) error {
	b.running.Store(false)
	stats := b.Stats()
	b.logger.Info("event bus stopped",
		zap.Int64("published", stats.Published),
		zap.Int64("handler_failures", stats.HandlerFailures),
	)
	return nil
}

// IsRunning reports whether Start was called without a later Stop
func (b *InMemoryEventBus) IsRunning() bool {
	return b.running.Load()
}

// Stats returns the delivery counters
func (b *InMemoryEventBus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()
	return Stats{
		Published:       b.published.Load(),
		HandlerFailures: b.failed.Load(),
		Subscribers:     n,
	}
}

func handlerName(h shared.EventHandler) string {
	t := reflect.TypeOf(h)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

var _ shared.EventPublisher = (*InMemoryEventBus)(nil)
