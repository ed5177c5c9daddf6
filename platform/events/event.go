// Package events is the in-process event bus modules use to react to each
// other's changes without importing one another.
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"time"
)

// Event is implemented by every published event.
type Event interface {
	// EventName is the subscription key, e.g. "pipeline.lead.created".
	EventName() string
	// OccurredAt is when the change was committed.
	OccurredAt() time.Time
}

// BaseEvent carries the commit time. Embed it in concrete events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt implements Event.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps the current time.
func NewBaseEvent() BaseEvent {
	return BaseEventAt(time.Now())
}

// BaseEventAt stamps t, normally the updated_at of the record that changed, so
// consumers can order events of one record without a clock of their own.
func BaseEventAt(t time.Time) BaseEvent {
	return BaseEvent{Timestamp: t.UTC()}
}

// Handler consumes events it subscribed to.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribers registered by name.
type Bus interface {
	// Publish hands event to its subscribers without waiting for them.
	Publish(ctx context.Context, event Event)
	// PublishSync runs the subscribers inline and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error
	// Subscribe registers handler for events whose EventName is eventName.
	Subscribe(eventName string, handler Handler)
}
