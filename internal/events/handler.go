// internal/events/handler.go
package events

import (
	"context"
	"sync"
)

// Handler receives bus events. Handlers run on the bus goroutine one event at a
// time, so a slow handler delays every later event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc is an adapter to allow the use of ordinary functions as event handlers.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription represents a subscription to events.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id   string
	bus  *Bus
	typ  EventType
	once sync.Once
}

// Unsubscribe removes the handler; repeated calls are no-ops.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.unsubscribe(s.id, s.typ)
	})
}
