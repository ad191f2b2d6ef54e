package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
	"ledgergate/pkg/platform/tx"
)

// PostgresStore persists wallet classifications.
//
// Schema:
//
//	CREATE TABLE wallet_classifications (
//	    wallet         TEXT PRIMARY KEY,
//	    classification SMALLINT NOT NULL,
//	    owner_account  TEXT NOT NULL DEFAULT ''
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) queryer(ctx context.Context) interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Get(ctx context.Context, wallet id.Address) (*Record, error) {
	row := s.queryer(ctx).QueryRowContext(ctx,
		`SELECT wallet, classification, owner_account FROM wallet_classifications WHERE wallet = $1`,
		wallet.String(),
	)
	return scanRecord(row)
}

func (s *PostgresStore) Put(ctx context.Context, rec *Record) error {
	_, err := s.queryer(ctx).ExecContext(ctx,
		`INSERT INTO wallet_classifications (wallet, classification, owner_account) VALUES ($1, $2, $3)`,
		rec.Wallet.String(), rec.Classification, rec.Owner.String(),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert wallet classification: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, wallet id.Address) error {
	res, err := s.queryer(ctx).ExecContext(ctx,
		`DELETE FROM wallet_classifications WHERE wallet = $1`, wallet.String(),
	)
	if err != nil {
		return fmt.Errorf("delete wallet classification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete wallet classification: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) ([]*Record, error) {
	rows, err := s.queryer(ctx).QueryContext(ctx,
		`SELECT wallet, classification, owner_account FROM wallet_classifications ORDER BY wallet`,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot wallet classifications: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec           Record
		wallet, owner string
	)
	err := row.Scan(&wallet, &rec.Classification, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan wallet classification: %w", err)
	}
	rec.Wallet, err = id.ParseAddress(wallet)
	if err != nil {
		return nil, fmt.Errorf("scan wallet classification: %w", err)
	}
	if owner != "" {
		rec.Owner, err = id.ParseAddress(owner)
		if err != nil {
			return nil, fmt.Errorf("scan wallet classification: %w", err)
		}
	}
	return &rec, nil
}
