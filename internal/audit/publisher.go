package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledgergate/pkg/requestcontext"
)

// StorePublisher emits events synchronously to a Store with fail-closed
// semantics: if the write fails, an error is returned and the calling
// operation must fail. Every event this system produces has regulatory
// significance, so there is no sampled or fire-and-forget path.
type StorePublisher struct {
	store  Store
	logger *slog.Logger
}

// Option configures the StorePublisher.
type Option func(*StorePublisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *StorePublisher) {
		p.logger = logger
	}
}

// NewPublisher creates a fail-closed publisher over the given store.
func NewPublisher(store Store, opts ...Option) *StorePublisher {
	p := &StorePublisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes an event to the audit store. It stamps the
// execution-time clock and request ID from context when unset.
func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	start := time.Now()
	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: audit persistence failed",
				"action", event.Action,
				"actor", event.Actor,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	if p.logger != nil {
		p.logger.DebugContext(ctx, "audit event persisted",
			"action", event.Action,
			"elapsed", time.Since(start),
		)
	}
	return nil
}
