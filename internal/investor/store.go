package investor

import (
	"context"

	id "ledgergate/pkg/domain"
)

// Store persists investor records and the wallet reverse index.
// Implementations return sentinel errors for factual states (not found,
// conflict); the service translates them into domain errors.
type Store interface {
	// Create registers a new investor. Returns sentinel.ErrConflict when
	// the ID or the collision hash is already taken.
	Create(ctx context.Context, inv *Investor) error
	FindByID(ctx context.Context, investorID id.InvestorID) (*Investor, error)
	// FindByWallet resolves the wallet reverse index.
	FindByWallet(ctx context.Context, wallet id.Address) (*Investor, error)
	// Execute atomically validates and mutates one investor record while
	// holding the store's write lock (mutex or FOR UPDATE).
	Execute(ctx context.Context, investorID id.InvestorID, validate func(*Investor) error, mutate func(*Investor)) (*Investor, error)
	// BindWallet atomically writes the wallet reverse index entry.
	// Returns sentinel.ErrConflict when the wallet is bound elsewhere.
	BindWallet(ctx context.Context, wallet id.Address, investorID id.InvestorID) error
	// Snapshot exposes all records for the flat state export.
	Snapshot(ctx context.Context) ([]*Investor, error)
}
