package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, enrollment.AggregateTypeApplication, uuid.New(), "reviewer-1"),
	}
}

// testHandler implements EventHandler for testing
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	approved := newTestHandler(enrollment.EventTypeApplicationApproved)
	audit := newTestHandler()
	bus.Subscribe(approved)
	bus.Subscribe(audit)

	first := newTestEvent(enrollment.EventTypeApplicationApproved)
	second := newTestEvent(enrollment.EventTypeStudentProvisioned)
	require.NoError(t, bus.Publish(context.Background(), first, second))

	assert.Equal(t, []shared.DomainEvent{first}, approved.getHandled())
	assert.Equal(t, []shared.DomainEvent{first, second}, audit.getHandled())
}

func TestInMemoryEventBus_SubscribeExplicitTypes(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := newTestHandler(enrollment.EventTypeApplicationApproved)
	bus.Subscribe(handler, enrollment.EventTypeApplicationRejected)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent(enrollment.EventTypeApplicationApproved),
		newTestEvent(enrollment.EventTypeApplicationRejected),
	))
	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, enrollment.EventTypeApplicationRejected, handler.getHandled()[0].EventType())
}

func TestInMemoryEventBus_HandlerFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newTestHandler()
	failing.err = errors.New("audit sink offline")
	panicking := newTestHandler()
	panicking.panicWith = "boom"
	healthy := newTestHandler()
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	event := newTestEvent(enrollment.EventTypeApplicationRejected)
	err := bus.Publish(context.Background(), event)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit sink offline")
	assert.Contains(t, err.Error(), "handler panicked: boom")
	assert.Len(t, healthy.getHandled(), 1)
	assert.Equal(t, 2, logs.FilterMessage("handler failed to process event").Len())
	assert.Equal(t, event.AggregateID().String(), logs.All()[0].ContextMap()["aggregate_id"])
	assert.Equal(t, "testHandler", logs.All()[0].ContextMap()["handler"])
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler()
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent(enrollment.EventTypeApplicationCreated)))
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	assert.False(t, bus.IsRunning())
	require.NoError(t, bus.Start(ctx))
	assert.True(t, bus.IsRunning())
	require.NoError(t, bus.Stop(ctx))
	assert.False(t, bus.IsRunning())
}

func TestInMemoryEventBus_ResubscribeReplacesTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler()
	bus.Subscribe(handler, enrollment.EventTypeApplicationApproved)
	bus.Subscribe(handler, enrollment.EventTypeApplicationRejected)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent(enrollment.EventTypeApplicationApproved),
		newTestEvent(enrollment.EventTypeApplicationRejected),
	))
	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, enrollment.EventTypeApplicationRejected, handler.getHandled()[0].EventType())
	assert.Equal(t, 1, bus.Stats().Subscribers)
}

func TestInMemoryEventBus_Stats(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := newTestHandler()
	failing.err = errors.New("x")
	bus.Subscribe(failing)
	bus.Subscribe(newTestHandler(enrollment.EventTypeApplicationApproved))

	_ = bus.Publish(context.Background(),
		newTestEvent(enrollment.EventTypeApplicationApproved),
		newTestEvent(enrollment.EventTypeDocumentVerified),
	)

	assert.Equal(t, Stats{Published: 2, HandlerFailures: 2, Subscribers: 2}, bus.Stats())
}

func TestInMemoryEventBus_SpanPerDelivery(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})

	bus := NewInMemoryEventBus(zap.NewNop())
	failing := newTestHandler()
	failing.err = errors.New("audit sink offline")
	bus.Subscribe(failing)

	event := newTestEvent(enrollment.EventTypeApplicationApproved)
	require.Error(t, bus.Publish(context.Background(), event))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "event."+enrollment.EventTypeApplicationApproved, spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := map[attribute.Key]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "testHandler", attrs["event.handler"])
	assert.Equal(t, event.AggregateID().String(), attrs["enrollment.application_id"])
}
