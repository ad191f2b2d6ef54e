package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ledgergate/internal/compliance"
	"ledgergate/internal/compliance/adapters"
	"ledgergate/internal/investor"
	"ledgergate/internal/locks"
	"ledgergate/internal/trust"
	"ledgergate/internal/wallet"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/requestcontext"
)

// =============================================================================
// Ledger Service Test Suite
// =============================================================================
// Justification for unit tests: the ledger's commit ordering (check, then
// commit, then counters and locks) carries the conservation and cap
// invariants. The suite wires the real registries, lock manager and
// regulated engine over in-memory stores so rejections and counter
// transitions are exercised end to end.

const (
	masterAddr = id.Address("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	treasury   = id.Address("ffffffffffffffffffffffffffffffffffffffff")
	usWallet   = id.Address("1111111111111111111111111111111111111111")
	euWalletA  = id.Address("2222222222222222222222222222222222222222")
	euWalletB  = id.Address("3333333333333333333333333333333333333333")
	strayAddr  = id.Address("4444444444444444444444444444444444444444")
)

// holdingsPort closes the read cycle between the lock manager, the engine
// and the ledger, the same way main binds them.
type holdingsPort struct {
	svc *Service
}

func (h *holdingsPort) BalanceOf(ctx context.Context, w id.Address) (uint64, error) {
	return h.svc.BalanceOf(ctx, w)
}

func (h *holdingsPort) InvestorHoldings(ctx context.Context, investorID id.InvestorID) (uint64, error) {
	return h.svc.InvestorHoldings(ctx, investorID)
}

type LedgerServiceSuite struct {
	suite.Suite
	trust     *trust.Service
	investors *investor.Service
	wallets   *wallet.Service
	locks     *locks.Service
	config    *compliance.InMemoryConfigStore
	counters  *compliance.InMemoryCountersStore
	service   *Service
	now       time.Time
	ctx       context.Context
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(
		requestcontext.WithCaller(context.Background(), masterAddr), s.now)

	s.trust = trust.New(trust.NewInMemoryStore())
	s.Require().NoError(s.trust.Bootstrap(context.Background(), masterAddr))

	s.investors = investor.New(investor.NewInMemoryStore(), s.trust)
	s.wallets = wallet.New(wallet.NewInMemoryStore(), s.trust)
	s.config = compliance.NewInMemoryConfigStore()
	s.counters = compliance.NewInMemoryCountersStore()

	holdings := &holdingsPort{}
	s.locks = locks.New(locks.NewInMemoryStore(), s.trust, holdings, s.investors)

	facts := adapters.NewInvestorFacts(s.investors, s.config)
	engine := compliance.NewRegulatedEngine(s.config, s.counters, facts, s.wallets, s.locks, holdings)
	tracker := compliance.NewTracker(s.counters, facts)

	s.service = New(NewInMemoryStore(), s.trust, engine, s.locks, s.investors, s.wallets,
		WithHolderTracker(tracker),
		WithIssuanceLockPolicy(adapters.NewIssuanceLockPolicy(facts, s.config)),
	)
	holdings.svc = s.service

	// Two investors with classified countries and one issuer treasury.
	cfg := compliance.NewConfig()
	cfg.Countries["US"] = compliance.RegionUS
	cfg.Countries["DE"] = compliance.RegionEU
	s.Require().NoError(s.config.Replace(context.Background(), cfg))

	s.register("inv-us", "US", usWallet)
	s.register("inv-eu", "DE", euWalletA, euWalletB)
	s.Require().NoError(s.wallets.ClassifyIssuerWallet(s.ctx, treasury))
}

func (s *LedgerServiceSuite) register(investorID id.InvestorID, country string, wallets ...id.Address) {
	s.Require().NoError(s.investors.Register(s.ctx, investorID, ""))
	s.Require().NoError(s.investors.SetCountry(s.ctx, investorID, country))
	for _, w := range wallets {
		s.Require().NoError(s.investors.AddWallet(s.ctx, w, investorID))
	}
}

func (s *LedgerServiceSuite) setRule(index int, value uint64) {
	cfg, err := s.config.Get(context.Background())
	s.Require().NoError(err)
	cfg.Rules[index] = value
	s.Require().NoError(s.config.Replace(context.Background(), cfg))
}

func (s *LedgerServiceSuite) asWallet(w id.Address) context.Context {
	return requestcontext.WithTime(
		requestcontext.WithCaller(context.Background(), w), s.now)
}

func (s *LedgerServiceSuite) balance(w id.Address) uint64 {
	balance, err := s.service.BalanceOf(s.ctx, w)
	s.Require().NoError(err)
	return balance
}

func (s *LedgerServiceSuite) holderCounters() compliance.Counters {
	counters, err := s.counters.Get(context.Background())
	s.Require().NoError(err)
	return counters
}

func (s *LedgerServiceSuite) ruleCode(err error) int {
	code, ok := dErrors.RuleCode(err)
	s.Require().True(ok, "expected a compliance error, got %v", err)
	return code
}

// =============================================================================
// Cap Tests
// =============================================================================

func (s *LedgerServiceSuite) TestSetCap() {
	s.Run("zero cap rejected", func() {
		err := s.service.SetCap(s.ctx, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("cap is set exactly once", func() {
		s.Require().NoError(s.service.SetCap(s.ctx, 1000))

		capValue, set, err := s.service.Cap(s.ctx)
		s.NoError(err)
		s.True(set)
		s.Equal(uint64(1000), capValue)

		err = s.service.SetCap(s.ctx, 2000)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *LedgerServiceSuite) TestSetCapBelowIssued() {
	s.Require().NoError(s.service.IssueTokens(s.ctx, euWalletA, 500))

	err := s.service.SetCap(s.ctx, 400)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	s.NoError(s.service.SetCap(s.ctx, 500))
}

// =============================================================================
// Issuance Tests
// =============================================================================

func (s *LedgerServiceSuite) TestIssueTokens() {
	s.Run("unauthorized caller rejected", func() {
		err := s.service.IssueTokens(s.asWallet(euWalletA), euWalletA, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unregistered wallet rejected", func() {
		err := s.service.IssueTokens(s.ctx, strayAddr, 100)
		s.Equal(compliance.CodeWalletUnregistered, s.ruleCode(err))
	})

	s.Run("credits balance, totals and holder counters", func() {
		s.Require().NoError(s.service.IssueTokens(s.ctx, euWalletA, 500))

		s.Equal(uint64(500), s.balance(euWalletA))

		supply, err := s.service.TotalSupply(s.ctx)
		s.NoError(err)
		s.Equal(uint64(500), supply)

		issued, err := s.service.TotalIssued(s.ctx)
		s.NoError(err)
		s.Equal(uint64(500), issued)

		counters := s.holderCounters()
		s.Equal(uint64(1), counters.Total)
		s.Equal(uint64(1), counters.EU)
	})

	s.Run("issuance to a special wallet skips investor rules", func() {
		s.Require().NoError(s.service.IssueTokens(s.ctx, treasury, 100))

		// No investor behind the treasury, so no holder counted.
		s.Equal(uint64(1), s.holderCounters().Total)
	})
}

func (s *LedgerServiceSuite) TestIssueCapEnforcement() {
	s.Require().NoError(s.service.SetCap(s.ctx, 600))
	s.Require().NoError(s.service.IssueTokens(s.ctx, euWalletA, 500))

	s.Run("issuance above the cap rejected", func() {
		err := s.service.IssueTokens(s.ctx, euWalletA, 200)
		s.Equal(compliance.CodeCapExceeded, s.ruleCode(err))
	})

	s.Run("issuance up to the cap passes", func() {
		s.NoError(s.service.IssueTokens(s.ctx, euWalletA, 100))
	})

	s.Run("burning does not release cap room", func() {
		s.Require().NoError(s.service.Burn(s.ctx, euWalletA, 300, "test burn"))

		err := s.service.IssueTokens(s.ctx, euWalletA, 1)
		s.Equal(compliance.CodeCapExceeded, s.ruleCode(err))

		issued, err := s.service.TotalIssued(s.ctx)
		s.NoError(err)
		s.Equal(uint64(600), issued)
	})
}

func (s *LedgerServiceSuite) TestIssueTokensCustom() {
	s.Run("locked value above issued value rejected", func() {
		err := s.service.IssueTokensCustom(s.ctx, euWalletA, 100, s.now, 200, 1, "vesting", s.now.Add(time.Hour))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("past release time rejects before anything commits", func() {
		err := s.service.IssueTokensCustom(s.ctx, euWalletA, 100, s.now, 40, 0, "bad lock", s.now.Add(-time.Hour))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		s.Zero(s.balance(euWalletA))

		issued, err := s.service.TotalIssued(s.ctx)
		s.NoError(err)
		s.Zero(issued)

		supply, err := s.service.TotalSupply(s.ctx)
		s.NoError(err)
		s.Zero(supply)
	})

	s.Run("locked portion is created atomically with the issuance", func() {
		release := s.now.Add(time.Hour)
		s.Require().NoError(s.service.IssueTokensCustom(s.ctx, euWalletA, 500, s.now, 200, 1, "vesting", release))

		free, err := s.locks.GetTransferableTokens(s.ctx, euWalletA, s.now)
		s.NoError(err)
		s.Equal(uint64(300), free)

		free, err = s.locks.GetTransferableTokens(s.ctx, euWalletA, release)
		s.NoError(err)
		s.Equal(uint64(500), free)
	})
}

func (s *LedgerServiceSuite) TestIssuanceLockPeriods() {
	s.setRule(compliance.RuleNonUSLockPeriod, 3600)
	s.setRule(compliance.RuleUSLockPeriod, 7200)

	s.Run("non-us issuance locks for the non-us period", func() {
		s.Require().NoError(s.service.IssueTokens(s.ctx, euWalletA, 100))

		free, err := s.locks.GetTransferableTokens(s.ctx, euWalletA, s.now)
		s.NoError(err)
		s.Equal(uint64(0), free)

		free, err = s.locks.GetTransferableTokens(s.ctx, euWalletA, s.now.Add(time.Hour))
		s.NoError(err)
		s.Equal(uint64(100), free)
	})

	s.Run("us issuance locks for the us period", func() {
		s.Require().NoError(s.service.IssueTokens(s.ctx, usWallet, 100))

		free, err := s.locks.GetTransferableTokens(s.ctx, usWallet, s.now.Add(time.Hour))
		s.NoError(err)
		s.Equal(uint64(0), free)

		free, err = s.locks.GetTransferableTokens(s.ctx, usWallet, s.now.Add(2*time.Hour))
		s.NoError(err)
		s.Equal(uint64(100), free)
	})
}

// =============================================================================
// Transfer Tests
// =============================================================================

func (s *LedgerServiceSuite) TestTransfer() {
	s.Require().NoError(s.service.IssueTokens(s.ctx, euWalletA, 500))

	s.Run("unregistered destination rejected", func() {
		err := s.service.Transfer(s.asWallet(euWalletA), strayAddr, 100)
		s.Equal(compliance.CodeWalletUnregistered, s.ruleCode(err))
	})

	s.Run("moves balance and conserves supply", func() {
		s.Require().NoError(s.service.Transfer(s.asWallet(euWalletA), usWallet, 200))

		s.Equal(uint64(300), s.balance(euWalletA))
		s.Equal(uint64(200), s.balance(usWallet))

		supply, err := s.service.TotalSupply(s.ctx)
		s.NoError(err)
		s.Equal(uint64(500), supply)

		counters := s.holderCounters()
		s.Equal(uint64(2), counters.Total)
		s.Equal(uint64(1), counters.US)
		s.Equal(uint64(1), counters.EU)
	})

	s.Run("full exit drops the holder count", func() {
		s.Require().NoError(s.service.Transfer(s.asWallet(euWalletA), usWallet, 300))

		counters := s.holderCounters()
		s.Equal(uint64(1), counters.Total)
		s.Equal(uint64(0), counters.EU)
	})

	s.Run("same-investor transfers do not touch the counters", func() {
		s.Require().NoError(s.service.IssueTokens(s.ctx, euWalletA, 100))
		before := s.holderCounters()

		s.Require().NoError(s.service.Transfer(s.asWallet(euWalletA), euWalletB, 100))
		s.Equal(before, s.holderCounters())
	})
}

func (s *LedgerServiceSuite) TestTransferLockedBalance() {
	s.Require().NoError(s.service.IssueTokens(s.ctx, euWalletA, 500))
	s.Require().NoError(s.locks.AddManualLockRecord(s.ctx, euWalletA, 400, 1, "escrow", s.now.Add(time.Hour)))

	s.Run("value above the transferable balance rejected", func() {
		err := s.service.Transfer(s.asWallet(euWalletA), usWallet, 200)
		s.Equal(compliance.CodeInsufficientUnlocked, s.ruleCode(err))

		// A rejection commits nothing.
		s.Equal(uint64(500), s.balance(euWalletA))
	})

	s.Run("value within the transferable balance passes", func() {
		s.NoError(s.service.Transfer(s.asWallet(euWalletA), usWallet, 100))
	})

	s.Run("fully locked investor cannot move anything", func() {
		s.Require().NoError(s.locks.LockInvestor(s.ctx, "inv-eu"))

		err := s.service.Transfer(s.asWallet(euWalletA), usWallet, 1)
		s.Equal(compliance.CodeInsufficientUnlocked, s.ruleCode(err))
	})
}

// =============================================================================
func (s *LedgerServiceSuite) TestTransferForceFullTransferAttribute() {
	s.Require().NoError(s.service.IssueTokens(s.ctx, euWalletA, 500))
	s.Require().NoError(s.investors.SetAttribute(s.ctx, "inv-eu",
		investor.AttributeForceFullTransfer, investor.AttributeApproved, time.Time{}, ""))

	s.Run("partial transfer is rejected", func() {
		err := s.service.Transfer(s.asWallet(euWalletA), usWallet, 200)
		s.Equal(compliance.CodeFullTransferRequired, s.ruleCode(err))
	})

	s.Run("the full transferable balance moves", func() {
		s.Require().NoError(s.service.Transfer(s.asWallet(euWalletA), usWallet, 500))
		s.Zero(s.balance(euWalletA))
		s.Equal(uint64(500), s.balance(usWallet))
	})
}

// =============================================================================
// Seize Tests
// =============================================================================

func (s *LedgerServiceSuite) TestSeize() {
	s.Require().NoError(s.service.IssueTokens(s.ctx, euWalletA, 500))

	s.Run("unauthorized caller rejected", func() {
		err := s.service.Seize(s.asWallet(euWalletA), euWalletA, treasury, 100, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("destination must be an issuer wallet", func() {
		err := s.service.Seize(s.ctx, euWalletA, usWallet, 100, "court order")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("value above the balance rejected", func() {
		err := s.service.Seize(s.ctx, euWalletA, treasury, 600, "court order")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("moves the tokens and conserves supply", func() {
		s.Require().NoError(s.service.Seize(s.ctx, euWalletA, treasury, 200, "court order"))

		s.Equal(uint64(300), s.balance(euWalletA))
		s.Equal(uint64(200), s.balance(treasury))

		supply, err := s.service.TotalSupply(s.ctx)
		s.NoError(err)
		s.Equal(uint64(500), supply)
	})

	s.Run("seizure overrides locks on the source", func() {
		s.Require().NoError(s.locks.AddManualLockRecord(s.ctx, euWalletA, 300, 1, "escrow", s.now.Add(time.Hour)))

		s.NoError(s.service.Seize(s.ctx, euWalletA, treasury, 300, "court order"))
		s.Equal(uint64(0), s.balance(euWalletA))
	})
}

// =============================================================================
// Burn Tests
// =============================================================================

func (s *LedgerServiceSuite) TestBurn() {
	s.Require().NoError(s.service.IssueTokens(s.ctx, euWalletA, 500))

	s.Run("value above the balance rejected", func() {
		err := s.service.Burn(s.ctx, euWalletA, 600, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("reduces supply but never issued", func() {
		s.Require().NoError(s.service.Burn(s.ctx, euWalletA, 200, "redemption"))

		supply, err := s.service.TotalSupply(s.ctx)
		s.NoError(err)
		s.Equal(uint64(300), supply)

		issued, err := s.service.TotalIssued(s.ctx)
		s.NoError(err)
		s.Equal(uint64(500), issued)
	})

	s.Run("burning the last tokens drops the holder count", func() {
		s.Require().NoError(s.service.Burn(s.ctx, euWalletA, 300, "redemption"))

		counters := s.holderCounters()
		s.Equal(uint64(0), counters.Total)
		s.Equal(uint64(0), counters.EU)
	})
}
