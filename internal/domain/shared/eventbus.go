package shared

import "context"

// EventPublisher publishes domain events to interested parties.
// Publishing is fire-and-forget from the domain's point of view: a publisher
// failure must never fail or roll back the business operation that raised
// the event.
type EventPublisher interface {
	// Publish publishes one or more domain events
	Publish(ctx context.Context, events ...DomainEvent) error
}

// NoOpPublisher discards all events. Useful for tests and for wiring
// components that do not need notifications.
type NoOpPublisher struct{}

// Publish discards the events
func (NoOpPublisher) Publish(_ context.Context, _ ...DomainEvent) error {
	return nil
}

var _ EventPublisher = NoOpPublisher{}
