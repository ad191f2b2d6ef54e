package investor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
	txcontext "ledgergate/pkg/platform/tx"
)

// PostgresStore persists investor records in PostgreSQL. Schema:
//
//	investors(id TEXT PRIMARY KEY, country TEXT NOT NULL DEFAULT '',
//	          collision_hash TEXT UNIQUE, created_at TIMESTAMPTZ NOT NULL)
//	investor_attributes(investor_id TEXT REFERENCES investors(id),
//	          type TEXT, value SMALLINT, expiry TIMESTAMPTZ NULL,
//	          proof_hash TEXT, PRIMARY KEY (investor_id, type))
//	investor_wallets(wallet TEXT PRIMARY KEY,
//	          investor_id TEXT REFERENCES investors(id))
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, inv *Investor) error {
	const insert = `
		INSERT INTO investors (id, country, collision_hash, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)`
	if _, err := s.db.ExecContext(ctx, insert,
		inv.ID.String(), inv.Country, inv.CollisionHash, time.Now(),
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert investor: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, investorID id.InvestorID) (*Investor, error) {
	return s.load(ctx, s.db, investorID)
}

func (s *PostgresStore) FindByWallet(ctx context.Context, wallet id.Address) (*Investor, error) {
	const query = `SELECT investor_id FROM investor_wallets WHERE wallet = $1`
	var investorID string
	if err := s.db.QueryRowContext(ctx, query, wallet.String()).Scan(&investorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find investor by wallet: %w", err)
	}
	return s.load(ctx, s.db, id.InvestorID(investorID))
}

// Execute validates and mutates an investor under FOR UPDATE so the
// validate-then-mutate pair is atomic against concurrent writers.
func (s *PostgresStore) Execute(ctx context.Context, investorID id.InvestorID, validate func(*Investor) error, mutate func(*Investor)) (*Investor, error) {
	var inv *Investor
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		t, _ := txcontext.From(ctx)

		var country string
		if err := t.QueryRowContext(ctx,
			`SELECT country FROM investors WHERE id = $1 FOR UPDATE`,
			investorID.String(),
		).Scan(&country); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock investor: %w", err)
		}

		loaded, err := s.load(ctx, t, investorID)
		if err != nil {
			return err
		}
		if err := validate(loaded); err != nil {
			return err
		}
		mutate(loaded)

		if _, err := t.ExecContext(ctx,
			`UPDATE investors SET country = $2 WHERE id = $1`,
			loaded.ID.String(), loaded.Country,
		); err != nil {
			return fmt.Errorf("update investor: %w", err)
		}
		for typ, attr := range loaded.Attributes {
			if _, err := t.ExecContext(ctx, `
				INSERT INTO investor_attributes (investor_id, type, value, expiry, proof_hash)
				VALUES ($1, $2, $3, NULLIF($4, '0001-01-01T00:00:00Z'::timestamptz), $5)
				ON CONFLICT (investor_id, type)
				DO UPDATE SET value = EXCLUDED.value, expiry = EXCLUDED.expiry, proof_hash = EXCLUDED.proof_hash`,
				loaded.ID.String(), string(typ), int(attr.Value), attr.Expiry, attr.ProofHash,
			); err != nil {
				return fmt.Errorf("upsert investor attribute: %w", err)
			}
		}

		inv = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *PostgresStore) BindWallet(ctx context.Context, wallet id.Address, investorID id.InvestorID) error {
	const insert = `
		INSERT INTO investor_wallets (wallet, investor_id)
		VALUES ($1, $2)
		ON CONFLICT (wallet) DO NOTHING`
	res, err := s.db.ExecContext(ctx, insert, wallet.String(), investorID.String())
	if err != nil {
		return fmt.Errorf("bind wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Row exists - idempotent if bound to the same investor.
		var bound string
		if err := s.db.QueryRowContext(ctx,
			`SELECT investor_id FROM investor_wallets WHERE wallet = $1`,
			wallet.String(),
		).Scan(&bound); err != nil {
			return fmt.Errorf("check wallet binding: %w", err)
		}
		if bound != investorID.String() {
			return sentinel.ErrConflict
		}
	}
	return nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) ([]*Investor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM investors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list investors: %w", err)
	}
	defer rows.Close()

	var ids []id.InvestorID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan investor id: %w", err)
		}
		ids = append(ids, id.InvestorID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*Investor, 0, len(ids))
	for _, investorID := range ids {
		inv, err := s.load(ctx, s.db, investorID)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) load(ctx context.Context, q queryer, investorID id.InvestorID) (*Investor, error) {
	inv := &Investor{
		ID:         investorID,
		Attributes: make(map[AttributeType]Attribute),
	}
	var hash sql.NullString
	if err := q.QueryRowContext(ctx,
		`SELECT country, collision_hash FROM investors WHERE id = $1`,
		investorID.String(),
	).Scan(&inv.Country, &hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load investor: %w", err)
	}
	inv.CollisionHash = hash.String

	attrRows, err := q.QueryContext(ctx,
		`SELECT type, value, expiry, proof_hash FROM investor_attributes WHERE investor_id = $1`,
		investorID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load investor attributes: %w", err)
	}
	defer attrRows.Close()
	for attrRows.Next() {
		var (
			typ    string
			value  int
			expiry sql.NullTime
			proof  string
		)
		if err := attrRows.Scan(&typ, &value, &expiry, &proof); err != nil {
			return nil, fmt.Errorf("scan investor attribute: %w", err)
		}
		inv.Attributes[AttributeType(typ)] = Attribute{
			Value:     AttributeValue(value),
			Expiry:    expiry.Time,
			ProofHash: proof,
		}
	}
	if err := attrRows.Err(); err != nil {
		return nil, err
	}

	walletRows, err := q.QueryContext(ctx,
		`SELECT wallet FROM investor_wallets WHERE investor_id = $1 ORDER BY wallet`,
		investorID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load investor wallets: %w", err)
	}
	defer walletRows.Close()
	for walletRows.Next() {
		var wallet string
		if err := walletRows.Scan(&wallet); err != nil {
			return nil, fmt.Errorf("scan investor wallet: %w", err)
		}
		inv.Wallets = append(inv.Wallets, id.Address(wallet))
	}
	return inv, walletRows.Err()
}
