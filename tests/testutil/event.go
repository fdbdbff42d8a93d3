package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/schoolops/enrollment/internal/domain/shared"
)

// RecordingHandler is a shared.EventHandler that keeps every event it receives
type RecordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewRecordingHandler creates a handler subscribed to eventTypes
func NewRecordingHandler(eventTypes ...string) *RecordingHandler {
	return &RecordingHandler{eventTypes: eventTypes}
}

// EventTypes returns the subscribed event types
func (h *RecordingHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records the event and returns the configured error
func (h *RecordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// SetError makes Handle fail with err
func (h *RecordingHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Types returns the types of the handled events in order
func (h *RecordingHandler) Types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	types := make([]string, len(h.handled))
	for i, e := range h.handled {
		types[i] = e.EventType()
	}
	return types
}

// Count returns the number of handled events of eventType
func (h *RecordingHandler) Count(eventType string) int {
	n := 0
	for _, t := range h.Types() {
		if t == eventType {
			n++
		}
	}
	return n
}

// Eventually waits until condition holds or the timeout elapses
func Eventually(t *testing.T, condition func() bool, timeout time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}
