package locks

import (
	"context"

	id "ledgergate/pkg/domain"
)

// Store persists per-wallet lock records and the per-investor full-lock
// flag. Remove returns sentinel.ErrNotFound for an out-of-range index and
// compacts by swapping the last record into the vacated slot.
type Store interface {
	Records(ctx context.Context, wallet id.Address) ([]Record, error)
	Append(ctx context.Context, wallet id.Address, rec Record) error
	Remove(ctx context.Context, wallet id.Address, index int) (Record, error)

	IsInvestorLocked(ctx context.Context, investorID id.InvestorID) (bool, error)
	SetInvestorLocked(ctx context.Context, investorID id.InvestorID, locked bool) error

	Snapshot(ctx context.Context) (map[id.Address][]Record, []id.InvestorID, error)
}
