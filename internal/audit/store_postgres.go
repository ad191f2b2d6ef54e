package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "ledgergate/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events are written to the outbox table in the same transaction as the
// operation's own writes and shipped to Kafka by the outbox worker, so an
// event exists if and only if the operation committed.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL audit store that writes to the outbox.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	ID        string `json:"ID"`
	Timestamp string `json:"Timestamp"`
	Action    string `json:"Action"`
	Actor     string `json:"Actor,omitempty"`
	Wallet    string `json:"Wallet,omitempty"`
	Investor  string `json:"Investor,omitempty"`
	Field     string `json:"Field,omitempty"`
	OldValue  string `json:"OldValue,omitempty"`
	NewValue  string `json:"NewValue,omitempty"`
	Amount    uint64 `json:"Amount,omitempty"`
	Reason    string `json:"Reason,omitempty"`
	RequestID string `json:"RequestID,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	eventID := uuid.New()

	payload := outboxPayload{
		ID:        eventID.String(),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    string(event.Action),
		Actor:     event.Actor.String(),
		Wallet:    event.Wallet.String(),
		Investor:  event.Investor.String(),
		Field:     event.Field,
		OldValue:  event.OldValue,
		NewValue:  event.NewValue,
		Amount:    event.Amount,
		Reason:    event.Reason,
		RequestID: event.RequestID,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	const insert = `
		INSERT INTO audit_outbox (id, action, payload, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := s.execer(ctx).ExecContext(ctx, insert,
		eventID, string(event.Action), payloadBytes, event.Timestamp,
	); err != nil {
		return fmt.Errorf("insert audit outbox row: %w", err)
	}
	return nil
}

// outboxRow is one unpublished outbox entry.
type outboxRow struct {
	ID      uuid.UUID
	Payload []byte
}

// fetchUnpublished returns up to limit unpublished rows, oldest first.
func (s *PostgresStore) fetchUnpublished(ctx context.Context, limit int) ([]outboxRow, error) {
	const query = `
		SELECT id, payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit outbox: %w", err)
	}
	defer rows.Close()

	var out []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.ID, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan audit outbox row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// markPublished stamps an outbox row as shipped.
func (s *PostgresStore) markPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	const update = `UPDATE audit_outbox SET published_at = $2 WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, update, id, at); err != nil {
		return fmt.Errorf("mark audit outbox row published: %w", err)
	}
	return nil
}
