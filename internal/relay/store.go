package relay

import (
	"context"
	"crypto/ed25519"

	id "ledgergate/pkg/domain"
)

// KeyStore persists the per-investor relay signing keys. Get returns
// sentinel.ErrNotFound when no key is registered.
type KeyStore interface {
	Get(ctx context.Context, investorID id.InvestorID) (ed25519.PublicKey, error)
	Put(ctx context.Context, investorID id.InvestorID, key ed25519.PublicKey) error
}

// NonceStore persists the strictly increasing per-investor relay nonce.
// A missing entry reads as zero.
type NonceStore interface {
	Get(ctx context.Context, investorID id.InvestorID) (uint64, error)
	Increment(ctx context.Context, investorID id.InvestorID) error
}
