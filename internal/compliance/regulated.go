package compliance

import (
	"context"
	"log/slog"
	"time"

	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/requestcontext"
)

// RegulatedEngine enforces the full rule chain: jurisdiction, holdings
// limits, holder counts, accreditation, flow-back and locks.
type RegulatedEngine struct {
	config    ConfigStore
	counters  CountersStore
	investors InvestorPort
	wallets   WalletClassifier
	locks     LockReader
	holdings  HoldingsPort
	logger    *slog.Logger
	metrics   *Metrics
}

type EngineOption func(*RegulatedEngine)

func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *RegulatedEngine) { e.logger = logger }
}

func WithEngineMetrics(m *Metrics) EngineOption {
	return func(e *RegulatedEngine) { e.metrics = m }
}

func NewRegulatedEngine(
	config ConfigStore,
	counters CountersStore,
	investors InvestorPort,
	wallets WalletClassifier,
	locks LockReader,
	holdings HoldingsPort,
	opts ...EngineOption,
) *RegulatedEngine {
	e := &RegulatedEngine{
		config:    config,
		counters:  counters,
		investors: investors,
		wallets:   wallets,
		locks:     locks,
		holdings:  holdings,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *RegulatedEngine) PreTransferCheck(ctx context.Context, from, to domain.Address, value uint64) (Verdict, error) {
	now := requestcontext.Now(ctx)

	cfg, err := e.config.Get(ctx)
	if err != nil {
		return Verdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "load compliance config")
	}
	counters, err := e.counters.Get(ctx)
	if err != nil {
		return Verdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "load holder counters")
	}

	in := transferFacts{cfg: cfg, counters: counters, now: now, value: value}

	in.from, in.fromFound, err = e.investors.FactsByWallet(ctx, from)
	if err != nil {
		return Verdict{}, err
	}
	in.to, in.toFound, err = e.investors.FactsByWallet(ctx, to)
	if err != nil {
		return Verdict{}, err
	}
	in.fromSpecial, err = e.wallets.IsSpecial(ctx, from)
	if err != nil {
		return Verdict{}, err
	}
	in.toSpecial, err = e.wallets.IsSpecial(ctx, to)
	if err != nil {
		return Verdict{}, err
	}
	in.transferable, err = e.locks.TransferableTokens(ctx, from, now)
	if err != nil {
		return Verdict{}, err
	}
	if in.fromFound {
		in.fromHoldings, err = e.holdings.InvestorHoldings(ctx, in.from.ID)
		if err != nil {
			return Verdict{}, err
		}
	}
	if in.toFound {
		in.toHoldings, err = e.holdings.InvestorHoldings(ctx, in.to.ID)
		if err != nil {
			return Verdict{}, err
		}
	}

	verdict := evaluateTransfer(in)
	e.observe(ctx, "transfer", verdict)
	return verdict, nil
}

func (e *RegulatedEngine) PreIssuanceCheck(ctx context.Context, wallet domain.Address, value uint64, issuanceTime time.Time) (Verdict, error) {
	now := requestcontext.Now(ctx)

	cfg, err := e.config.Get(ctx)
	if err != nil {
		return Verdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "load compliance config")
	}
	counters, err := e.counters.Get(ctx)
	if err != nil {
		return Verdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "load holder counters")
	}

	in := issuanceFacts{cfg: cfg, counters: counters, now: now, value: value, issuanceTime: issuanceTime}

	in.to, in.toFound, err = e.investors.FactsByWallet(ctx, wallet)
	if err != nil {
		return Verdict{}, err
	}
	in.toSpecial, err = e.wallets.IsSpecial(ctx, wallet)
	if err != nil {
		return Verdict{}, err
	}
	if in.toFound {
		in.toHoldings, err = e.holdings.InvestorHoldings(ctx, in.to.ID)
		if err != nil {
			return Verdict{}, err
		}
	}

	verdict := evaluateIssuance(in)
	e.observe(ctx, "issuance", verdict)
	return verdict, nil
}

func (e *RegulatedEngine) observe(ctx context.Context, kind string, verdict Verdict) {
	if e.metrics != nil {
		e.metrics.RecordVerdict(kind, verdict.Code)
	}
	if e.logger != nil && !verdict.OK() {
		e.logger.InfoContext(ctx, "compliance check rejected",
			slog.String("kind", kind),
			slog.Int("rule_code", verdict.Code),
			slog.String("message", verdict.Message),
		)
	}
}
