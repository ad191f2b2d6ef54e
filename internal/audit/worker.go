package audit

import (
	"context"
	"log/slog"
	"time"
)

// Worker drains the postgres outbox into the Kafka sink. It polls rather
// than listens so it survives broker restarts without coordination.
type Worker struct {
	store    *PostgresStore
	sink     *KafkaSink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

func NewWorker(store *PostgresStore, sink *KafkaSink, logger *slog.Logger) *Worker {
	return &Worker{
		store:    store,
		sink:     sink,
		logger:   logger,
		interval: 2 * time.Second,
		batch:    100,
	}
}

// Run polls until the context is cancelled. Publish failures are retried
// on the next tick; rows stay in the outbox until acked.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	rows, err := w.store.fetchUnpublished(ctx, w.batch)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.sink.Publish(ctx, row.ID.String(), row.Payload); err != nil {
			return err
		}
		if err := w.store.markPublished(ctx, row.ID, time.Now()); err != nil {
			return err
		}
	}
	return nil
}
