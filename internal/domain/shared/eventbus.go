package shared

import "context"

// EventHandler consumes committed domain events. The same event may arrive
// more than once, from an outbox retry or a repeated intake call.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes names the consumed types; none means all of them
	EventTypes() []string
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

type EventSubscriber interface {
	// Subscribe falls back to handler.EventTypes when no types are given
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus dispatches events from the outbox processor and the intake
// endpoint to the ledger's handlers.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	// Stop rejects new events and waits for in-flight ones until ctx is done
	Stop(ctx context.Context) error
}
