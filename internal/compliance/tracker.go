package compliance

import (
	"context"

	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

// Tracker maintains the committed holder counters. The ledger calls it
// after a commit whenever an investor's aggregate holdings cross zero;
// counters are never recomputed by scanning balances. Wallets without a
// bound investor (special wallets) are ignored.
type Tracker struct {
	counters  CountersStore
	investors InvestorPort
}

func NewTracker(counters CountersStore, investors InvestorPort) *Tracker {
	return &Tracker{counters: counters, investors: investors}
}

// HolderGained records that the wallet's investor went from zero to a
// positive aggregate holding.
func (t *Tracker) HolderGained(ctx context.Context, wallet domain.Address) error {
	return t.adjust(ctx, wallet, 1)
}

// HolderLost records that the wallet's investor dropped back to zero.
func (t *Tracker) HolderLost(ctx context.Context, wallet domain.Address) error {
	return t.adjust(ctx, wallet, -1)
}

// Counters returns the committed holder counts.
func (t *Tracker) Counters(ctx context.Context) (Counters, error) {
	counters, err := t.counters.Get(ctx)
	if err != nil {
		return Counters{}, dErrors.Wrap(err, dErrors.CodeInternal, "load holder counters")
	}
	return counters, nil
}

func (t *Tracker) adjust(ctx context.Context, wallet domain.Address, delta int) error {
	facts, found, err := t.investors.FactsByWallet(ctx, wallet)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := t.counters.Adjust(ctx, facts.Region, delta); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "adjust holder counters")
	}
	return nil
}
