package compliance

import (
	"context"
	"time"

	"ledgergate/pkg/domain"
)

// InvestorFacts is the slice of investor state the rule engine consumes.
// Attribute values are already resolved against the evaluation clock, so
// an expired accreditation shows up here as false.
type InvestorFacts struct {
	ID                domain.InvestorID
	Country           string
	Region            Region
	Accredited        bool
	ForceFullTransfer bool
}

// InvestorPort resolves a wallet to the facts about its investor. The
// boolean reports whether the wallet is bound at all.
type InvestorPort interface {
	FactsByWallet(ctx context.Context, wallet domain.Address) (InvestorFacts, bool, error)
}

// WalletClassifier reports whether a wallet is classified as a special
// wallet (issuer, platform or exchange).
type WalletClassifier interface {
	IsSpecial(ctx context.Context, wallet domain.Address) (bool, error)
}

// LockReader exposes the transferable balance of a wallet at a point in
// time, net of active lock records and the investor full-lock flag.
type LockReader interface {
	TransferableTokens(ctx context.Context, wallet domain.Address, now time.Time) (uint64, error)
}

// HoldingsPort exposes committed balances, per wallet and aggregated per
// investor across all of the investor's wallets.
type HoldingsPort interface {
	BalanceOf(ctx context.Context, wallet domain.Address) (uint64, error)
	InvestorHoldings(ctx context.Context, id domain.InvestorID) (uint64, error)
}
