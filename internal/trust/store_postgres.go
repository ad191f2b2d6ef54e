package trust

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
)

// PostgresStore persists role assignments in PostgreSQL. Schema:
//
//	trust_roles(account TEXT PRIMARY KEY, role SMALLINT NOT NULL)
//
// The MASTER-unique invariant is enforced by the service; the store
// derives the owner as the account currently holding MASTER.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetRole(ctx context.Context, account id.Address) (Role, error) {
	var role int
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM trust_roles WHERE account = $1`,
		account.String(),
	).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return RoleNone, sentinel.ErrNotFound
	}
	if err != nil {
		return RoleNone, fmt.Errorf("get role: %w", err)
	}
	return Role(role), nil
}

func (s *PostgresStore) SetRole(ctx context.Context, account id.Address, role Role) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO trust_roles (account, role)
		VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET role = EXCLUDED.role`,
		account.String(), int(role),
	); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveRole(ctx context.Context, account id.Address) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM trust_roles WHERE account = $1`,
		account.String(),
	)
	if err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Owner(ctx context.Context) (id.Address, error) {
	var account string
	err := s.db.QueryRowContext(ctx,
		`SELECT account FROM trust_roles WHERE role = $1`,
		int(RoleMaster),
	).Scan(&account)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get owner: %w", err)
	}
	return id.Address(account), nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) (map[id.Address]Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account, role FROM trust_roles`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	out := make(map[id.Address]Role)
	for rows.Next() {
		var (
			account string
			role    int
		)
		if err := rows.Scan(&account, &role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		out[id.Address(account)] = Role(role)
	}
	return out, rows.Err()
}
