//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema holds every table the postgres stores expect. Applied once when
// the container starts.
const schema = `
CREATE TABLE investors (
    id             TEXT PRIMARY KEY,
    country        TEXT NOT NULL DEFAULT '',
    collision_hash TEXT UNIQUE,
    created_at     TIMESTAMPTZ NOT NULL
);
CREATE TABLE investor_attributes (
    investor_id TEXT NOT NULL REFERENCES investors(id) ON DELETE CASCADE,
    type        TEXT NOT NULL,
    value       SMALLINT NOT NULL,
    expiry      TIMESTAMPTZ,
    proof_hash  TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (investor_id, type)
);
CREATE TABLE investor_wallets (
    wallet      TEXT PRIMARY KEY,
    investor_id TEXT NOT NULL REFERENCES investors(id) ON DELETE CASCADE
);
CREATE TABLE wallet_classifications (
    wallet         TEXT PRIMARY KEY,
    classification SMALLINT NOT NULL,
    owner_account  TEXT NOT NULL DEFAULT ''
);
CREATE TABLE lock_records (
    wallet       TEXT NOT NULL,
    idx          INT NOT NULL,
    value        BIGINT NOT NULL,
    reason_code  BIGINT NOT NULL,
    reason       TEXT NOT NULL,
    release_time TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (wallet, idx)
);
CREATE TABLE locked_investors (
    investor_id TEXT PRIMARY KEY
);
CREATE TABLE balances (
    wallet  TEXT PRIMARY KEY,
    balance BIGINT NOT NULL CHECK (balance >= 0)
);
CREATE TABLE ledger_totals (
    singleton BOOL PRIMARY KEY DEFAULT TRUE CHECK (singleton),
    supply    BIGINT NOT NULL DEFAULT 0,
    issued    BIGINT NOT NULL DEFAULT 0,
    cap       BIGINT,
    CHECK (cap IS NULL OR issued <= cap)
);
INSERT INTO ledger_totals DEFAULT VALUES;
CREATE TABLE trust_roles (
    account TEXT PRIMARY KEY,
    role    SMALLINT NOT NULL
);
CREATE TABLE relay_keys (
    investor_id TEXT PRIMARY KEY,
    public_key  BYTEA NOT NULL
);
CREATE TABLE audit_outbox (
    id           UUID PRIMARY KEY,
    action       TEXT NOT NULL,
    payload      JSONB NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    published_at TIMESTAMPTZ
);
`

// PostgresContainer wraps a testcontainers Postgres instance with an open
// database handle.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	DSN       string
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("ledgergate_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{Container: container, DB: db, DSN: dsn}
}

// TruncateTables empties the named tables. Use between tests to ensure
// isolation. The ledger_totals singleton row is restored if truncated.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	for _, table := range tables {
		if table == "ledger_totals" {
			if _, err := p.DB.ExecContext(ctx, "INSERT INTO ledger_totals DEFAULT VALUES"); err != nil {
				return fmt.Errorf("reseed ledger totals: %w", err)
			}
		}
	}
	return nil
}
