package ledger

import (
	"context"

	id "ledgergate/pkg/domain"
)

// Totals is the aggregate ledger state. Issued never decreases; Supply
// tracks circulating tokens and drops on burns. Cap is meaningful only
// when CapSet is true.
type Totals struct {
	Supply uint64
	Issued uint64
	Cap    uint64
	CapSet bool
}

// Store persists wallet balances and the aggregate totals. The mutating
// calls assume the service has already validated the operation: Move and
// Burn with more than the source balance are store-level bugs, not user
// errors.
type Store interface {
	BalanceOf(ctx context.Context, wallet id.Address) (uint64, error)
	Totals(ctx context.Context) (Totals, error)

	// SetCap fixes the cap exactly once; sentinel.ErrConflict thereafter.
	SetCap(ctx context.Context, value uint64) error

	// Issue credits a wallet and bumps supply and issued together.
	Issue(ctx context.Context, wallet id.Address, value uint64) error

	// Move shifts value between two wallets without touching totals.
	Move(ctx context.Context, from, to id.Address, value uint64) error

	// Burn debits a wallet and reduces supply; issued is untouched.
	Burn(ctx context.Context, wallet id.Address, value uint64) error

	Snapshot(ctx context.Context) (map[id.Address]uint64, Totals, error)
}
