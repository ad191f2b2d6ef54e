package wallet

import (
	"context"

	id "ledgergate/pkg/domain"
)

// Store persists wallet classifications. Get returns sentinel.ErrNotFound
// for unclassified wallets. Put fails with sentinel.ErrConflict when the
// wallet is already classified; reclassification requires a Delete first.
type Store interface {
	Get(ctx context.Context, wallet id.Address) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, wallet id.Address) error
	Snapshot(ctx context.Context) ([]*Record, error)
}
