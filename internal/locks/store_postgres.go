package locks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
	"ledgergate/pkg/platform/tx"
)

// PostgresStore persists lock records and the investor full-lock flag.
//
// Schema:
//
//	CREATE TABLE lock_records (
//	    wallet       TEXT NOT NULL,
//	    idx          INT NOT NULL,
//	    value        BIGINT NOT NULL,
//	    reason_code  BIGINT NOT NULL,
//	    reason       TEXT NOT NULL,
//	    release_time TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (wallet, idx)
//	);
//	CREATE TABLE locked_investors (
//	    investor_id TEXT PRIMARY KEY
//	);
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

func (s *PostgresStore) Records(ctx context.Context, wallet id.Address) ([]Record, error) {
	rows, err := s.queryer(ctx).QueryContext(ctx,
		`SELECT value, reason_code, reason, release_time FROM lock_records WHERE wallet = $1 ORDER BY idx`,
		wallet.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load lock records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Value, &rec.ReasonCode, &rec.Reason, &rec.ReleaseTime); err != nil {
			return nil, fmt.Errorf("scan lock record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Append(ctx context.Context, wallet id.Address, rec Record) error {
	_, err := s.queryer(ctx).ExecContext(ctx,
		`INSERT INTO lock_records (wallet, idx, value, reason_code, reason, release_time)
		 SELECT $1, COALESCE(MAX(idx) + 1, 0), $2, $3, $4, $5 FROM lock_records WHERE wallet = $1`,
		wallet.String(), rec.Value, rec.ReasonCode, rec.Reason, rec.ReleaseTime,
	)
	if err != nil {
		return fmt.Errorf("append lock record: %w", err)
	}
	return nil
}

// Remove deletes the record at index and swaps the last record into its
// place, mirroring the in-memory compaction.
func (s *PostgresStore) Remove(ctx context.Context, wallet id.Address, index int) (Record, error) {
	q := s.queryer(ctx)

	var removed Record
	err := q.QueryRowContext(ctx,
		`DELETE FROM lock_records WHERE wallet = $1 AND idx = $2
		 RETURNING value, reason_code, reason, release_time`,
		wallet.String(), index,
	).Scan(&removed.Value, &removed.ReasonCode, &removed.Reason, &removed.ReleaseTime)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("remove lock record: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`UPDATE lock_records SET idx = $2
		 WHERE wallet = $1 AND idx = (SELECT MAX(idx) FROM lock_records WHERE wallet = $1) AND idx > $2`,
		wallet.String(), index,
	)
	if err != nil {
		return Record{}, fmt.Errorf("compact lock records: %w", err)
	}
	return removed, nil
}

func (s *PostgresStore) IsInvestorLocked(ctx context.Context, investorID id.InvestorID) (bool, error) {
	var locked bool
	err := s.queryer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM locked_investors WHERE investor_id = $1)`,
		investorID.String(),
	).Scan(&locked)
	if err != nil {
		return false, fmt.Errorf("load investor lock flag: %w", err)
	}
	return locked, nil
}

func (s *PostgresStore) SetInvestorLocked(ctx context.Context, investorID id.InvestorID, locked bool) error {
	var err error
	if locked {
		_, err = s.queryer(ctx).ExecContext(ctx,
			`INSERT INTO locked_investors (investor_id) VALUES ($1) ON CONFLICT DO NOTHING`,
			investorID.String(),
		)
	} else {
		_, err = s.queryer(ctx).ExecContext(ctx,
			`DELETE FROM locked_investors WHERE investor_id = $1`,
			investorID.String(),
		)
	}
	if err != nil {
		return fmt.Errorf("set investor lock flag: %w", err)
	}
	return nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) (map[id.Address][]Record, []id.InvestorID, error) {
	rows, err := s.queryer(ctx).QueryContext(ctx,
		`SELECT wallet, value, reason_code, reason, release_time FROM lock_records ORDER BY wallet, idx`,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot lock records: %w", err)
	}
	defer rows.Close()

	records := make(map[id.Address][]Record)
	for rows.Next() {
		var (
			wallet string
			rec    Record
		)
		if err := rows.Scan(&wallet, &rec.Value, &rec.ReasonCode, &rec.Reason, &rec.ReleaseTime); err != nil {
			return nil, nil, fmt.Errorf("scan lock record: %w", err)
		}
		addr, err := id.ParseAddress(wallet)
		if err != nil {
			return nil, nil, fmt.Errorf("scan lock record: %w", err)
		}
		records[addr] = append(records[addr], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	lockedRows, err := s.queryer(ctx).QueryContext(ctx,
		`SELECT investor_id FROM locked_investors ORDER BY investor_id`,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot locked investors: %w", err)
	}
	defer lockedRows.Close()

	var locked []id.InvestorID
	for lockedRows.Next() {
		var investorID string
		if err := lockedRows.Scan(&investorID); err != nil {
			return nil, nil, fmt.Errorf("scan locked investor: %w", err)
		}
		locked = append(locked, id.InvestorID(investorID))
	}
	return records, locked, lockedRows.Err()
}
