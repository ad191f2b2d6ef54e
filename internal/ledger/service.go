package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ledgergate/internal/audit"
	"ledgergate/internal/compliance"
	"ledgergate/internal/locks"
	"ledgergate/internal/platform/metrics"
	"ledgergate/internal/trust"
	"ledgergate/internal/wallet"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/sentinel"
	"ledgergate/pkg/requestcontext"
)

// Authorizer resolves the caller's role. Implemented by trust.Service.
type Authorizer interface {
	Require(ctx context.Context, allowed ...trust.Role) error
}

// Locker appends lock records created atomically with an issuance.
// Implemented by locks.Service.
type Locker interface {
	AddRecord(ctx context.Context, wallet id.Address, rec locks.Record) error
}

// WalletResolver maps wallets to investors and back. Implemented by the
// investor registry.
type WalletResolver interface {
	InvestorOf(ctx context.Context, wallet id.Address) (id.InvestorID, bool, error)
	WalletsOf(ctx context.Context, investorID id.InvestorID) ([]id.Address, error)
}

// Classifier reads wallet classifications. Implemented by wallet.Service.
type Classifier interface {
	ClassificationOf(ctx context.Context, w id.Address) (wallet.Classification, error)
}

// HolderTracker is notified after a commit when an investor's aggregate
// holdings cross zero. Implemented by compliance.Tracker.
type HolderTracker interface {
	HolderGained(ctx context.Context, wallet id.Address) error
	HolderLost(ctx context.Context, wallet id.Address) error
}

// IssuanceLockPolicy computes the configured lock-period release time for
// a wallet at issuance. ok is false when no lock period applies.
type IssuanceLockPolicy interface {
	IssuanceLock(ctx context.Context, wallet id.Address, issuanceTime time.Time) (releaseTime time.Time, ok bool, err error)
}

// Service is the token ledger. Every mutating operation authorizes the
// caller, consults the compliance engine, and only then commits, so a
// rejection leaves no partial state behind.
type Service struct {
	store      Store
	authz      Authorizer
	engine     compliance.Engine
	locker     Locker
	resolver   WalletResolver
	classifier Classifier
	tracker    HolderTracker
	lockPolicy IssuanceLockPolicy

	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher audit.Publisher
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithHolderTracker(tracker HolderTracker) Option {
	return func(s *Service) { s.tracker = tracker }
}

func WithIssuanceLockPolicy(policy IssuanceLockPolicy) Option {
	return func(s *Service) { s.lockPolicy = policy }
}

func New(
	store Store,
	authz Authorizer,
	engine compliance.Engine,
	locker Locker,
	resolver WalletResolver,
	classifier Classifier,
	opts ...Option,
) *Service {
	s := &Service{
		store:      store,
		authz:      authz,
		engine:     engine,
		locker:     locker,
		resolver:   resolver,
		classifier: classifier,
		tracer:     otel.Tracer("ledgergate/ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCap fixes the issuance cap. It may be set exactly once.
func (s *Service) SetCap(ctx context.Context, value uint64) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}
	if value == 0 {
		return dErrors.New(dErrors.CodeValidation, "cap must be positive")
	}
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger store")
	}
	if totals.Issued > value {
		return dErrors.New(dErrors.CodeValidation, "cap below tokens already issued")
	}
	if err := s.store.SetCap(ctx, value); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeInvalidState, "cap is already set")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger store")
	}
	return s.emit(ctx, audit.Event{
		Action:   audit.ActionCapSet,
		NewValue: strconv.FormatUint(value, 10),
	})
}

// IssueTokens mints value to a wallet after the pre-issuance check and
// the cap check pass. A configured lock period for the wallet's region
// creates a lock record atomically with the issuance.
func (s *Service) IssueTokens(ctx context.Context, to id.Address, value uint64) error {
	return s.issue(ctx, to, value, requestcontext.Now(ctx), 0, 0, "", time.Time{})
}

// IssueTokensCustom mints with an explicit issuance time and an optional
// manual locked portion. The lock record is validated before the mint
// commits, so a rejected lock leaves no state behind.
func (s *Service) IssueTokensCustom(ctx context.Context, to id.Address, value uint64, issuanceTime time.Time, lockedValue uint64, reasonCode uint64, reason string, releaseTime time.Time) error {
	if lockedValue > value {
		return dErrors.New(dErrors.CodeValidation, "locked value exceeds issued value")
	}
	if issuanceTime.IsZero() {
		issuanceTime = requestcontext.Now(ctx)
	}
	return s.issue(ctx, to, value, issuanceTime, lockedValue, reasonCode, reason, releaseTime)
}

func (s *Service) issue(ctx context.Context, to id.Address, value uint64, issuanceTime time.Time, lockedValue uint64, reasonCode uint64, reason string, releaseTime time.Time) error {
	ctx, span := s.tracer.Start(ctx, "ledger.issue", trace.WithAttributes(
		attribute.String("wallet", to.String()),
		attribute.Int64("value", int64(value)),
	))
	defer span.End()

	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return s.fail(ctx, "issue", err)
	}
	if to.IsZero() {
		return s.fail(ctx, "issue", dErrors.New(dErrors.CodeValidation, "destination wallet is required"))
	}
	if value == 0 {
		return s.fail(ctx, "issue", dErrors.New(dErrors.CodeValidation, "issue value must be positive"))
	}

	verdict, err := s.engine.PreIssuanceCheck(ctx, to, value, issuanceTime)
	if err != nil {
		return s.fail(ctx, "issue", err)
	}
	if !verdict.OK() {
		return s.fail(ctx, "issue", dErrors.NewCompliance(verdict.Code, verdict.Message))
	}

	totals, err := s.store.Totals(ctx)
	if err != nil {
		return s.fail(ctx, "issue", dErrors.Wrap(err, dErrors.CodeInternal, "ledger store"))
	}
	if totals.CapSet && totals.Issued+value > totals.Cap {
		return s.fail(ctx, "issue", dErrors.NewCompliance(compliance.CodeCapExceeded,
			compliance.MessageFor(compliance.CodeCapExceeded)))
	}

	holdingsBefore, err := s.investorHoldingsOf(ctx, to)
	if err != nil {
		return s.fail(ctx, "issue", err)
	}

	// Resolve and validate every lock record before the mint commits, so
	// a malformed lock rejects the whole operation instead of leaving a
	// minted balance behind.
	now := requestcontext.Now(ctx)
	var records []locks.Record
	if lockedValue > 0 {
		rec := locks.Record{
			Value:       lockedValue,
			ReasonCode:  reasonCode,
			Reason:      reason,
			ReleaseTime: releaseTime,
		}
		if err := rec.Validate(now); err != nil {
			return s.fail(ctx, "issue", err)
		}
		records = append(records, rec)
	}
	if s.lockPolicy != nil {
		release, ok, err := s.lockPolicy.IssuanceLock(ctx, to, issuanceTime)
		if err != nil {
			return s.fail(ctx, "issue", err)
		}
		if ok && release.After(now) {
			records = append(records, locks.Record{
				Value:       value,
				Reason:      "issuance lock period",
				ReleaseTime: release,
			})
		}
	}

	if err := s.store.Issue(ctx, to, value); err != nil {
		return s.fail(ctx, "issue", dErrors.Wrap(err, dErrors.CodeInternal, "ledger store"))
	}
	for _, rec := range records {
		if err := s.locker.AddRecord(ctx, to, rec); err != nil {
			return s.fail(ctx, "issue", err)
		}
	}
	if holdingsBefore == 0 {
		if err := s.holderGained(ctx, to); err != nil {
			return s.fail(ctx, "issue", err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordOperation("issue")
		s.metrics.TokensIssued.Add(float64(value))
	}
	return s.emit(ctx, audit.Event{
		Action: audit.ActionTokensIssued,
		Wallet: to,
		Amount: value,
	})
}

// Transfer moves value from the caller's wallet. The compliance engine
// sees the transferable balance of the source, so a locked source fails
// with a compliance code rather than a generic ledger error.
func (s *Service) Transfer(ctx context.Context, to id.Address, value uint64) error {
	from := requestcontext.Caller(ctx)
	return s.transfer(ctx, "transfer", from, to, value, "")
}

// Seize moves value out of an arbitrary wallet into an issuer treasury
// wallet. It is an administrative override: the source's authorization is
// bypassed, but the destination still passes a compliance check.
func (s *Service) Seize(ctx context.Context, from, to id.Address, value uint64, reason string) error {
	ctx, span := s.tracer.Start(ctx, "ledger.seize", trace.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
		attribute.Int64("value", int64(value)),
	))
	defer span.End()

	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return s.fail(ctx, "seize", err)
	}
	if from.IsZero() || to.IsZero() {
		return s.fail(ctx, "seize", dErrors.New(dErrors.CodeValidation, "source and destination wallets are required"))
	}
	if value == 0 {
		return s.fail(ctx, "seize", dErrors.New(dErrors.CodeValidation, "seize value must be positive"))
	}
	class, err := s.classifier.ClassificationOf(ctx, to)
	if err != nil {
		return s.fail(ctx, "seize", err)
	}
	if class != wallet.ClassIssuer {
		return s.fail(ctx, "seize", dErrors.New(dErrors.CodeValidation, "seize destination must be an issuer wallet"))
	}

	// Destination-side compliance only; the source is overridden.
	verdict, err := s.engine.PreIssuanceCheck(ctx, to, value, time.Time{})
	if err != nil {
		return s.fail(ctx, "seize", err)
	}
	if !verdict.OK() {
		return s.fail(ctx, "seize", dErrors.NewCompliance(verdict.Code, verdict.Message))
	}

	balance, err := s.store.BalanceOf(ctx, from)
	if err != nil {
		return s.fail(ctx, "seize", dErrors.Wrap(err, dErrors.CodeInternal, "ledger store"))
	}
	if balance < value {
		return s.fail(ctx, "seize", dErrors.New(dErrors.CodeValidation, "seize value exceeds balance"))
	}

	if err := s.commitMove(ctx, from, to, value); err != nil {
		return s.fail(ctx, "seize", err)
	}
	if s.metrics != nil {
		s.metrics.RecordOperation("seize")
	}
	return s.emit(ctx, audit.Event{
		Action:   audit.ActionTokensSeized,
		Wallet:   from,
		Field:    "to",
		NewValue: to.String(),
		Amount:   value,
		Reason:   reason,
	})
}

func (s *Service) transfer(ctx context.Context, kind string, from, to id.Address, value uint64, reason string) error {
	ctx, span := s.tracer.Start(ctx, "ledger."+kind, trace.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
		attribute.Int64("value", int64(value)),
	))
	defer span.End()

	if from.IsZero() {
		return s.fail(ctx, kind, dErrors.New(dErrors.CodeUnauthorized, "caller wallet is not resolved"))
	}
	if to.IsZero() {
		return s.fail(ctx, kind, dErrors.New(dErrors.CodeValidation, "destination wallet is required"))
	}
	if value == 0 {
		return s.fail(ctx, kind, dErrors.New(dErrors.CodeValidation, "transfer value must be positive"))
	}

	verdict, err := s.engine.PreTransferCheck(ctx, from, to, value)
	if err != nil {
		return s.fail(ctx, kind, err)
	}
	if !verdict.OK() {
		return s.fail(ctx, kind, dErrors.NewCompliance(verdict.Code, verdict.Message))
	}

	if err := s.commitMove(ctx, from, to, value); err != nil {
		return s.fail(ctx, kind, err)
	}
	if s.metrics != nil {
		s.metrics.RecordOperation(kind)
	}
	return s.emit(ctx, audit.Event{
		Action:   audit.ActionTokensTransferred,
		Wallet:   from,
		Field:    "to",
		NewValue: to.String(),
		Amount:   value,
		Reason:   reason,
	})
}

// Burn destroys value from a wallet. Supply drops; totalIssued does not.
func (s *Service) Burn(ctx context.Context, w id.Address, value uint64, reason string) error {
	ctx, span := s.tracer.Start(ctx, "ledger.burn", trace.WithAttributes(
		attribute.String("wallet", w.String()),
		attribute.Int64("value", int64(value)),
	))
	defer span.End()

	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return s.fail(ctx, "burn", err)
	}
	if value == 0 {
		return s.fail(ctx, "burn", dErrors.New(dErrors.CodeValidation, "burn value must be positive"))
	}
	balance, err := s.store.BalanceOf(ctx, w)
	if err != nil {
		return s.fail(ctx, "burn", dErrors.Wrap(err, dErrors.CodeInternal, "ledger store"))
	}
	if balance < value {
		return s.fail(ctx, "burn", dErrors.New(dErrors.CodeValidation, "burn value exceeds balance"))
	}

	holdingsBefore, err := s.investorHoldingsOf(ctx, w)
	if err != nil {
		return s.fail(ctx, "burn", err)
	}
	if err := s.store.Burn(ctx, w, value); err != nil {
		return s.fail(ctx, "burn", dErrors.Wrap(err, dErrors.CodeInternal, "ledger store"))
	}
	if holdingsBefore > 0 && holdingsBefore == value {
		if err := s.holderLost(ctx, w); err != nil {
			return s.fail(ctx, "burn", err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordOperation("burn")
		s.metrics.TokensBurned.Add(float64(value))
	}
	return s.emit(ctx, audit.Event{
		Action: audit.ActionTokensBurned,
		Wallet: w,
		Amount: value,
		Reason: reason,
	})
}

// BalanceOf returns a wallet's committed balance.
func (s *Service) BalanceOf(ctx context.Context, wallet id.Address) (uint64, error) {
	balance, err := s.store.BalanceOf(ctx, wallet)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "ledger store")
	}
	return balance, nil
}

// TotalIssued returns the monotonic issued counter.
func (s *Service) TotalIssued(ctx context.Context) (uint64, error) {
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "ledger store")
	}
	return totals.Issued, nil
}

// TotalSupply returns the circulating supply.
func (s *Service) TotalSupply(ctx context.Context) (uint64, error) {
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "ledger store")
	}
	return totals.Supply, nil
}

// Cap returns the issuance cap and whether it has been set.
func (s *Service) Cap(ctx context.Context) (uint64, bool, error) {
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return 0, false, dErrors.Wrap(err, dErrors.CodeInternal, "ledger store")
	}
	return totals.Cap, totals.CapSet, nil
}

// InvestorHoldings sums the balances of every wallet bound to an
// investor.
func (s *Service) InvestorHoldings(ctx context.Context, investorID id.InvestorID) (uint64, error) {
	wallets, err := s.resolver.WalletsOf(ctx, investorID)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, w := range wallets {
		balance, err := s.store.BalanceOf(ctx, w)
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "ledger store")
		}
		total += balance
	}
	return total, nil
}

// commitMove applies a validated move and adjusts holder counters for
// both sides.
func (s *Service) commitMove(ctx context.Context, from, to id.Address, value uint64) error {
	fromInvestor, fromFound, err := s.resolver.InvestorOf(ctx, from)
	if err != nil {
		return err
	}
	toInvestor, toFound, err := s.resolver.InvestorOf(ctx, to)
	if err != nil {
		return err
	}
	sameInvestor := fromFound && toFound && fromInvestor == toInvestor

	var fromBefore, toBefore uint64
	if fromFound && !sameInvestor {
		if fromBefore, err = s.InvestorHoldings(ctx, fromInvestor); err != nil {
			return err
		}
	}
	if toFound && !sameInvestor {
		if toBefore, err = s.InvestorHoldings(ctx, toInvestor); err != nil {
			return err
		}
	}

	if err := s.store.Move(ctx, from, to, value); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger store")
	}

	if !sameInvestor {
		if toFound && toBefore == 0 && value > 0 {
			if err := s.holderGained(ctx, to); err != nil {
				return err
			}
		}
		if fromFound && fromBefore == value {
			if err := s.holderLost(ctx, from); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) investorHoldingsOf(ctx context.Context, wallet id.Address) (uint64, error) {
	investorID, found, err := s.resolver.InvestorOf(ctx, wallet)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return s.InvestorHoldings(ctx, investorID)
}

func (s *Service) holderGained(ctx context.Context, wallet id.Address) error {
	if s.tracker == nil {
		return nil
	}
	return s.tracker.HolderGained(ctx, wallet)
}

func (s *Service) holderLost(ctx context.Context, wallet id.Address) error {
	if s.tracker == nil {
		return nil
	}
	return s.tracker.HolderLost(ctx, wallet)
}

func (s *Service) fail(ctx context.Context, kind string, err error) error {
	if s.metrics != nil {
		s.metrics.RecordError(kind, string(dErrors.CodeOf(err)))
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "ledger operation rejected",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
	return err
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.publisher == nil {
		return nil
	}
	event.Actor = requestcontext.Caller(ctx)
	if err := s.publisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "emit ledger event")
	}
	return nil
}
