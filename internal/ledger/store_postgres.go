package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
	"ledgergate/pkg/platform/tx"
)

// PostgresStore persists ledger state.
//
// Schema:
//
//	CREATE TABLE balances (
//	    wallet  TEXT PRIMARY KEY,
//	    balance BIGINT NOT NULL CHECK (balance >= 0)
//	);
//	CREATE TABLE ledger_totals (
//	    singleton BOOL PRIMARY KEY DEFAULT TRUE CHECK (singleton),
//	    supply    BIGINT NOT NULL DEFAULT 0,
//	    issued    BIGINT NOT NULL DEFAULT 0,
//	    cap       BIGINT,
//	    CHECK (cap IS NULL OR issued <= cap)
//	);
//	INSERT INTO ledger_totals DEFAULT VALUES;
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) queryer(ctx context.Context) queryer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) BalanceOf(ctx context.Context, wallet id.Address) (uint64, error) {
	var balance uint64
	err := s.queryer(ctx).QueryRowContext(ctx,
		`SELECT balance FROM balances WHERE wallet = $1`, wallet.String(),
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load balance: %w", err)
	}
	return balance, nil
}

func (s *PostgresStore) Totals(ctx context.Context) (Totals, error) {
	var (
		totals Totals
		cap    sql.NullInt64
	)
	err := s.queryer(ctx).QueryRowContext(ctx,
		`SELECT supply, issued, cap FROM ledger_totals`,
	).Scan(&totals.Supply, &totals.Issued, &cap)
	if err != nil {
		return Totals{}, fmt.Errorf("load ledger totals: %w", err)
	}
	if cap.Valid {
		totals.Cap = uint64(cap.Int64)
		totals.CapSet = true
	}
	return totals, nil
}

func (s *PostgresStore) SetCap(ctx context.Context, value uint64) error {
	res, err := s.queryer(ctx).ExecContext(ctx,
		`UPDATE ledger_totals SET cap = $1 WHERE cap IS NULL`, value,
	)
	if err != nil {
		return fmt.Errorf("set cap: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set cap: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Issue(ctx context.Context, wallet id.Address, value uint64) error {
	q := s.queryer(ctx)
	_, err := q.ExecContext(ctx,
		`INSERT INTO balances (wallet, balance) VALUES ($1, $2)
		 ON CONFLICT (wallet) DO UPDATE SET balance = balances.balance + EXCLUDED.balance`,
		wallet.String(), value,
	)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`UPDATE ledger_totals SET supply = supply + $1, issued = issued + $1`, value,
	)
	if err != nil {
		return fmt.Errorf("bump totals: %w", err)
	}
	return nil
}

func (s *PostgresStore) Move(ctx context.Context, from, to id.Address, value uint64) error {
	q := s.queryer(ctx)
	res, err := q.ExecContext(ctx,
		`UPDATE balances SET balance = balance - $2 WHERE wallet = $1 AND balance >= $2`,
		from.String(), value,
	)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("move %d from %s: insufficient balance", value, from)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO balances (wallet, balance) VALUES ($1, $2)
		 ON CONFLICT (wallet) DO UPDATE SET balance = balances.balance + EXCLUDED.balance`,
		to.String(), value,
	)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

func (s *PostgresStore) Burn(ctx context.Context, wallet id.Address, value uint64) error {
	q := s.queryer(ctx)
	res, err := q.ExecContext(ctx,
		`UPDATE balances SET balance = balance - $2 WHERE wallet = $1 AND balance >= $2`,
		wallet.String(), value,
	)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("burn %d from %s: insufficient balance", value, wallet)
	}
	_, err = q.ExecContext(ctx,
		`UPDATE ledger_totals SET supply = supply - $1`, value,
	)
	if err != nil {
		return fmt.Errorf("reduce supply: %w", err)
	}
	return nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) (map[id.Address]uint64, Totals, error) {
	rows, err := s.queryer(ctx).QueryContext(ctx,
		`SELECT wallet, balance FROM balances ORDER BY wallet`,
	)
	if err != nil {
		return nil, Totals{}, fmt.Errorf("snapshot balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[id.Address]uint64)
	for rows.Next() {
		var (
			wallet  string
			balance uint64
		)
		if err := rows.Scan(&wallet, &balance); err != nil {
			return nil, Totals{}, fmt.Errorf("scan balance: %w", err)
		}
		addr, err := id.ParseAddress(wallet)
		if err != nil {
			return nil, Totals{}, fmt.Errorf("scan balance: %w", err)
		}
		balances[addr] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, Totals{}, err
	}
	totals, err := s.Totals(ctx)
	if err != nil {
		return nil, Totals{}, err
	}
	return balances, totals, nil
}
