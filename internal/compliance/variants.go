package compliance

import (
	"context"
	"time"

	"ledgergate/pkg/domain"
	"ledgergate/pkg/requestcontext"
)

// NotRegulatedEngine skips every jurisdiction and identity rule. Locks
// still apply: tokens under an active lock record never move, whatever
// the deployment mode.
type NotRegulatedEngine struct {
	locks LockReader
}

func NewNotRegulatedEngine(locks LockReader) *NotRegulatedEngine {
	return &NotRegulatedEngine{locks: locks}
}

func (e *NotRegulatedEngine) PreIssuanceCheck(_ context.Context, _ domain.Address, _ uint64, _ time.Time) (Verdict, error) {
	return Valid(), nil
}

func (e *NotRegulatedEngine) PreTransferCheck(ctx context.Context, from, _ domain.Address, value uint64) (Verdict, error) {
	transferable, err := e.locks.TransferableTokens(ctx, from, requestcontext.Now(ctx))
	if err != nil {
		return Verdict{}, err
	}
	if value > transferable {
		return reject(CodeInsufficientUnlocked), nil
	}
	return Valid(), nil
}

// GlobalWhitelistedEngine requires both parties of a transfer to be
// registered investors (or special wallets) but applies no further
// jurisdiction rules. Locks still apply.
type GlobalWhitelistedEngine struct {
	investors InvestorPort
	wallets   WalletClassifier
	locks     LockReader
}

func NewGlobalWhitelistedEngine(investors InvestorPort, wallets WalletClassifier, locks LockReader) *GlobalWhitelistedEngine {
	return &GlobalWhitelistedEngine{investors: investors, wallets: wallets, locks: locks}
}

func (e *GlobalWhitelistedEngine) PreIssuanceCheck(ctx context.Context, wallet domain.Address, _ uint64, _ time.Time) (Verdict, error) {
	listed, err := e.whitelisted(ctx, wallet)
	if err != nil {
		return Verdict{}, err
	}
	if !listed {
		return reject(CodeWhitelistRequired), nil
	}
	return Valid(), nil
}

func (e *GlobalWhitelistedEngine) PreTransferCheck(ctx context.Context, from, to domain.Address, value uint64) (Verdict, error) {
	for _, wallet := range []domain.Address{from, to} {
		listed, err := e.whitelisted(ctx, wallet)
		if err != nil {
			return Verdict{}, err
		}
		if !listed {
			return reject(CodeWhitelistRequired), nil
		}
	}
	transferable, err := e.locks.TransferableTokens(ctx, from, requestcontext.Now(ctx))
	if err != nil {
		return Verdict{}, err
	}
	if value > transferable {
		return reject(CodeInsufficientUnlocked), nil
	}
	return Valid(), nil
}

func (e *GlobalWhitelistedEngine) whitelisted(ctx context.Context, wallet domain.Address) (bool, error) {
	if _, found, err := e.investors.FactsByWallet(ctx, wallet); err != nil {
		return false, err
	} else if found {
		return true, nil
	}
	return e.wallets.IsSpecial(ctx, wallet)
}
