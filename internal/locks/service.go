package locks

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"ledgergate/internal/audit"
	"ledgergate/internal/trust"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/sentinel"
	"ledgergate/pkg/requestcontext"
)

// Authorizer resolves the caller's role. Implemented by trust.Service.
type Authorizer interface {
	Require(ctx context.Context, allowed ...trust.Role) error
}

// BalanceReader exposes committed wallet balances. Implemented by the
// ledger.
type BalanceReader interface {
	BalanceOf(ctx context.Context, wallet id.Address) (uint64, error)
}

// InvestorResolver maps a wallet to its investor, if any. Implemented by
// the investor registry.
type InvestorResolver interface {
	InvestorOf(ctx context.Context, wallet id.Address) (id.InvestorID, bool, error)
}

// Service manages lock records and investor full locks, and computes
// transferable balances.
type Service struct {
	store     Store
	authz     Authorizer
	balances  BalanceReader
	investors InvestorResolver
	logger    *slog.Logger
	publisher audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func New(store Store, authz Authorizer, balances BalanceReader, investors InvestorResolver, opts ...Option) *Service {
	s := &Service{store: store, authz: authz, balances: balances, investors: investors}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddManualLockRecord appends a lock on a wallet's tokens until the
// release time. The release time must be in the future at creation.
func (s *Service) AddManualLockRecord(ctx context.Context, wallet id.Address, value uint64, reasonCode uint64, reason string, releaseTime time.Time) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}
	return s.addRecord(ctx, wallet, Record{
		Value:       value,
		ReasonCode:  reasonCode,
		Reason:      reason,
		ReleaseTime: releaseTime,
	})
}

// AddRecord appends a lock record without an authorization check. It is
// for internal callers that have already authorized the surrounding
// operation, such as issuance-time locks.
func (s *Service) AddRecord(ctx context.Context, wallet id.Address, rec Record) error {
	return s.addRecord(ctx, wallet, rec)
}

func (s *Service) addRecord(ctx context.Context, wallet id.Address, rec Record) error {
	if wallet.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "wallet address is required")
	}
	if err := rec.Validate(requestcontext.Now(ctx)); err != nil {
		return err
	}

	if err := s.store.Append(ctx, wallet, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "lock store")
	}
	return s.emit(ctx, audit.Event{
		Action:   audit.ActionLockAdded,
		Wallet:   wallet,
		Amount:   rec.Value,
		Reason:   rec.Reason,
		NewValue: rec.ReleaseTime.UTC().Format(time.RFC3339),
	})
}

// RemoveLockRecord deletes the record at the given index. The last record
// is swapped into the vacated slot, so callers must not cache indices
// across removals.
func (s *Service) RemoveLockRecord(ctx context.Context, wallet id.Address, index int) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}

	removed, err := s.store.Remove(ctx, wallet, index)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeValidation, "lock record index %d out of range", index)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "lock store")
	}
	return s.emit(ctx, audit.Event{
		Action:   audit.ActionLockRemoved,
		Wallet:   wallet,
		Amount:   removed.Value,
		Reason:   removed.Reason,
		OldValue: strconv.Itoa(index),
	})
}

// LockCount returns the number of lock records on a wallet.
func (s *Service) LockCount(ctx context.Context, wallet id.Address) (int, error) {
	records, err := s.store.Records(ctx, wallet)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "lock store")
	}
	return len(records), nil
}

// LockInfo returns the record at the given index.
func (s *Service) LockInfo(ctx context.Context, wallet id.Address, index int) (Record, error) {
	records, err := s.store.Records(ctx, wallet)
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "lock store")
	}
	if index < 0 || index >= len(records) {
		return Record{}, dErrors.Newf(dErrors.CodeValidation, "lock record index %d out of range", index)
	}
	return records[index], nil
}

// GetTransferableTokens computes the unlocked balance of a wallet at the
// given time: zero when the wallet's investor is fully locked, otherwise
// the balance minus the sum of active lock values, floored at zero. A
// zero time is the sentinel for "unset" and is rejected.
func (s *Service) GetTransferableTokens(ctx context.Context, wallet id.Address, now time.Time) (uint64, error) {
	if now.IsZero() {
		return 0, dErrors.New(dErrors.CodeValidation, "evaluation time is required")
	}

	investorID, found, err := s.investors.InvestorOf(ctx, wallet)
	if err != nil {
		return 0, err
	}
	if found {
		locked, err := s.store.IsInvestorLocked(ctx, investorID)
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "lock store")
		}
		if locked {
			return 0, nil
		}
	}

	balance, err := s.balances.BalanceOf(ctx, wallet)
	if err != nil {
		return 0, err
	}
	records, err := s.store.Records(ctx, wallet)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "lock store")
	}

	var lockedSum uint64
	for _, rec := range records {
		if rec.Active(now) {
			lockedSum += rec.Value
		}
	}
	if lockedSum >= balance {
		return 0, nil
	}
	return balance - lockedSum, nil
}

// TransferableTokens adapts GetTransferableTokens to the compliance
// engine's lock reader port.
func (s *Service) TransferableTokens(ctx context.Context, wallet id.Address, now time.Time) (uint64, error) {
	return s.GetTransferableTokens(ctx, wallet, now)
}

// LockInvestor sets the investor full-lock flag. Every wallet of a fully
// locked investor reads as having zero transferable tokens.
func (s *Service) LockInvestor(ctx context.Context, investorID id.InvestorID) error {
	return s.setInvestorLocked(ctx, investorID, true, audit.ActionInvestorLocked)
}

// UnlockInvestor clears the investor full-lock flag.
func (s *Service) UnlockInvestor(ctx context.Context, investorID id.InvestorID) error {
	return s.setInvestorLocked(ctx, investorID, false, audit.ActionInvestorUnlocked)
}

// IsInvestorLocked reports the investor full-lock flag.
func (s *Service) IsInvestorLocked(ctx context.Context, investorID id.InvestorID) (bool, error) {
	locked, err := s.store.IsInvestorLocked(ctx, investorID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "lock store")
	}
	return locked, nil
}

func (s *Service) setInvestorLocked(ctx context.Context, investorID id.InvestorID, locked bool, action audit.Action) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}
	if investorID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "investor id is required")
	}

	current, err := s.store.IsInvestorLocked(ctx, investorID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "lock store")
	}
	if current == locked {
		if locked {
			return dErrors.New(dErrors.CodeInvalidState, "investor is already locked")
		}
		return dErrors.New(dErrors.CodeInvalidState, "investor is not locked")
	}
	if err := s.store.SetInvestorLocked(ctx, investorID, locked); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "lock store")
	}
	return s.emit(ctx, audit.Event{
		Action:   action,
		Investor: investorID,
		OldValue: strconv.FormatBool(current),
		NewValue: strconv.FormatBool(locked),
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.publisher == nil {
		return nil
	}
	event.Actor = requestcontext.Caller(ctx)
	if err := s.publisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "emit lock event")
	}
	return nil
}
