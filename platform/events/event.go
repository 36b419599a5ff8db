// Package events is the in-process event bus. Domain events live in
// internal/events.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName identifies the event type; handlers subscribe by it.
	EventName() string
	EventID() uuid.UUID
	OccurredAt() time.Time
}

// BaseEvent is embedded by domain events for identity and timestamp.
type BaseEvent struct {
	ID        uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events to subscribed handlers.
type Bus interface {
	// Publish runs every handler in the background. Failures are logged only.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers in subscription order and returns the first
	// error; later handlers still run.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
