package relay

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"errors"
	"fmt"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
)

// PostgresKeyStore persists relay signing keys in PostgreSQL. Schema:
//
//	relay_keys(investor_id TEXT PRIMARY KEY, public_key BYTEA NOT NULL)
//
// Put overwrites, so key rotation is a plain upsert.
type PostgresKeyStore struct {
	db *sql.DB
}

func NewPostgresKeyStore(db *sql.DB) *PostgresKeyStore {
	return &PostgresKeyStore{db: db}
}

func (s *PostgresKeyStore) Get(ctx context.Context, investorID id.InvestorID) (ed25519.PublicKey, error) {
	var key []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT public_key FROM relay_keys WHERE investor_id = $1`,
		investorID.String(),
	).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get relay key: %w", err)
	}
	return ed25519.PublicKey(key), nil
}

func (s *PostgresKeyStore) Put(ctx context.Context, investorID id.InvestorID, key ed25519.PublicKey) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO relay_keys (investor_id, public_key)
		VALUES ($1, $2)
		ON CONFLICT (investor_id) DO UPDATE SET public_key = EXCLUDED.public_key`,
		investorID.String(), []byte(key),
	); err != nil {
		return fmt.Errorf("put relay key: %w", err)
	}
	return nil
}
