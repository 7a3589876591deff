package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
)

// EventRecorder is an event handler that keeps every event it receives
type EventRecorder struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
}

// NewEventRecorder subscribes to the given types, or to everything when none are given
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{types: eventTypes}
}

// EventTypes returns the subscribed event types
func (r *EventRecorder) EventTypes() []string {
	return r.types
}

// Handle records the event
func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (r *EventRecorder) Events() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shared.DomainEvent(nil), r.events...)
}

// Count returns how many recorded events have the given type
func (r *EventRecorder) Count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

// WaitFor waits until at least n events of eventType were recorded
func (r *EventRecorder) WaitFor(t *testing.T, eventType string, n int, timeout time.Duration) bool {
	t.Helper()
	return WaitForCondition(t, func() bool { return r.Count(eventType) >= n }, timeout, 10*time.Millisecond)
}

var _ shared.EventHandler = (*EventRecorder)(nil)
