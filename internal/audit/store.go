package audit

import "context"

// Store persists audit events. The postgres implementation writes to a
// transactional outbox so events commit atomically with the operation that
// produced them; the worker ships the outbox to Kafka.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher is the interface services emit through. Emission is
// fail-closed: if the event cannot be persisted the operation must fail.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
