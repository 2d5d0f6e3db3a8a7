package shared

import "context"

// EventHandler consumes domain events delivered by the bus.
type EventHandler interface {
	// Handle processes one event. Returning an error lets the bus retry
	// or dead-letter the event depending on its policy.
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types this handler wants. Empty means
	// all events.
	EventTypes() []string
}

// EventPublisher delivers domain events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber manages handler registrations.
type EventSubscriber interface {
	// Subscribe registers a handler, optionally narrowing it to the given
	// event types on top of the handler's own EventTypes.
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe removes a previously registered handler.
	Unsubscribe(handler EventHandler)
}

// EventBus is the in-process pub/sub surface: publish, subscribe and
// lifecycle control.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver writes domain events to the outbox inside the caller's
// transaction. Repositories use it so aggregate changes and their events
// commit atomically.
type OutboxEventSaver interface {
	// SaveEvents persists events within the transaction carried by
	// txProvider (a *gorm.DB for the GORM-backed implementation).
	SaveEvents(ctx context.Context, txProvider interface{}, events ...DomainEvent) error
}
