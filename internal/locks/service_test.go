package locks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ledgergate/internal/trust"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/requestcontext"
)

// =============================================================================
// Lock Manager Test Suite
// =============================================================================
// Justification for unit tests: transferable-balance math combines wallet
// balances, record expiry and the investor full-lock flag under one clock;
// the swap-last removal invalidates cached indices in a way worth pinning.

const (
	masterAddr = id.Address("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	walletA    = id.Address("1111111111111111111111111111111111111111")
	walletB    = id.Address("2222222222222222222222222222222222222222")
)

// stubBalances serves fixed balances per wallet.
type stubBalances map[id.Address]uint64

func (b stubBalances) BalanceOf(_ context.Context, wallet id.Address) (uint64, error) {
	return b[wallet], nil
}

// stubInvestors maps wallets to investor IDs.
type stubInvestors map[id.Address]id.InvestorID

func (r stubInvestors) InvestorOf(_ context.Context, wallet id.Address) (id.InvestorID, bool, error) {
	investorID, ok := r[wallet]
	return investorID, ok, nil
}

type LockServiceSuite struct {
	suite.Suite
	trust    *trust.Service
	balances stubBalances
	service  *Service
	now      time.Time
	ctx      context.Context
}

func TestLockServiceSuite(t *testing.T) {
	suite.Run(t, new(LockServiceSuite))
}

func (s *LockServiceSuite) SetupTest() {
	s.trust = trust.New(trust.NewInMemoryStore())
	s.Require().NoError(s.trust.Bootstrap(context.Background(), masterAddr))

	s.balances = stubBalances{walletA: 1000, walletB: 500}
	s.service = New(NewInMemoryStore(), s.trust, s.balances, stubInvestors{
		walletA: "inv-a",
		walletB: "inv-b",
	})

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(
		requestcontext.WithCaller(context.Background(), masterAddr), s.now)
}

func (s *LockServiceSuite) lock(wallet id.Address, value uint64, release time.Time) {
	s.Require().NoError(s.service.AddManualLockRecord(s.ctx, wallet, value, 1, "test lock", release))
}

// =============================================================================
// Record Lifecycle Tests
// =============================================================================

func (s *LockServiceSuite) TestAddManualLockRecord() {
	s.Run("zero value rejected", func() {
		err := s.service.AddManualLockRecord(s.ctx, walletA, 0, 1, "", s.now.Add(time.Hour))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("release time must be in the future", func() {
		err := s.service.AddManualLockRecord(s.ctx, walletA, 10, 1, "", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unauthenticated caller rejected", func() {
		ctx := requestcontext.WithTime(context.Background(), s.now)
		err := s.service.AddManualLockRecord(ctx, walletA, 10, 1, "", s.now.Add(time.Hour))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("appends and counts", func() {
		s.lock(walletA, 100, s.now.Add(time.Hour))
		s.lock(walletA, 200, s.now.Add(2*time.Hour))

		count, err := s.service.LockCount(s.ctx, walletA)
		s.NoError(err)
		s.Equal(2, count)

		rec, err := s.service.LockInfo(s.ctx, walletA, 1)
		s.NoError(err)
		s.Equal(uint64(200), rec.Value)
	})
}

func (s *LockServiceSuite) TestRemoveLockRecord() {
	s.lock(walletA, 100, s.now.Add(time.Hour))
	s.lock(walletA, 200, s.now.Add(2*time.Hour))
	s.lock(walletA, 300, s.now.Add(3*time.Hour))

	s.Run("out of range index rejected", func() {
		err := s.service.RemoveLockRecord(s.ctx, walletA, 3)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("last record swaps into the vacated slot", func() {
		s.Require().NoError(s.service.RemoveLockRecord(s.ctx, walletA, 0))

		count, err := s.service.LockCount(s.ctx, walletA)
		s.NoError(err)
		s.Equal(2, count)

		rec, err := s.service.LockInfo(s.ctx, walletA, 0)
		s.NoError(err)
		s.Equal(uint64(300), rec.Value)

		rec, err = s.service.LockInfo(s.ctx, walletA, 1)
		s.NoError(err)
		s.Equal(uint64(200), rec.Value)
	})
}

// =============================================================================
// Transferable Balance Tests
// =============================================================================

func (s *LockServiceSuite) TestGetTransferableTokens() {
	s.Run("zero evaluation time rejected", func() {
		_, err := s.service.GetTransferableTokens(s.ctx, walletA, time.Time{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("no locks means the full balance", func() {
		free, err := s.service.GetTransferableTokens(s.ctx, walletA, s.now)
		s.NoError(err)
		s.Equal(uint64(1000), free)
	})

	s.Run("active locks reduce the balance", func() {
		s.lock(walletA, 300, s.now.Add(time.Hour))

		free, err := s.service.GetTransferableTokens(s.ctx, walletA, s.now)
		s.NoError(err)
		s.Equal(uint64(700), free)
	})

	s.Run("expired locks do not count", func() {
		// The 300 lock above releases at now+1h.
		release := s.now.Add(time.Hour)

		free, err := s.service.GetTransferableTokens(s.ctx, walletA, release)
		s.NoError(err)
		s.Equal(uint64(1000), free)

		free, err = s.service.GetTransferableTokens(s.ctx, walletA, release.Add(-time.Second))
		s.NoError(err)
		s.Equal(uint64(700), free)
	})

	s.Run("oversubscribed locks floor at zero", func() {
		s.lock(walletB, 400, s.now.Add(time.Hour))
		s.lock(walletB, 400, s.now.Add(time.Hour))

		free, err := s.service.GetTransferableTokens(s.ctx, walletB, s.now)
		s.NoError(err)
		s.Equal(uint64(0), free)
	})
}

// =============================================================================
// Investor Full Lock Tests
// =============================================================================

func (s *LockServiceSuite) TestInvestorFullLock() {
	s.Run("locking zeroes every wallet of the investor", func() {
		s.Require().NoError(s.service.LockInvestor(s.ctx, "inv-a"))

		free, err := s.service.GetTransferableTokens(s.ctx, walletA, s.now)
		s.NoError(err)
		s.Equal(uint64(0), free)

		// Other investors are untouched.
		free, err = s.service.GetTransferableTokens(s.ctx, walletB, s.now)
		s.NoError(err)
		s.Equal(uint64(500), free)
	})

	s.Run("double lock is an invalid state", func() {
		err := s.service.LockInvestor(s.ctx, "inv-a")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unlock restores the balance", func() {
		s.Require().NoError(s.service.UnlockInvestor(s.ctx, "inv-a"))

		free, err := s.service.GetTransferableTokens(s.ctx, walletA, s.now)
		s.NoError(err)
		s.Equal(uint64(1000), free)
	})

	s.Run("unlocking an unlocked investor is an invalid state", func() {
		err := s.service.UnlockInvestor(s.ctx, "inv-b")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}
