//go:build integration

package ledger_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"ledgergate/internal/ledger"
	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
	"ledgergate/pkg/testutil/containers"
)

const (
	walletA = id.Address("1111111111111111111111111111111111111111")
	walletB = id.Address("2222222222222222222222222222222222222222")
)

type LedgerPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *ledger.PostgresStore
}

func TestLedgerPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(LedgerPostgresSuite))
}

func (s *LedgerPostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = ledger.NewPostgresStore(s.postgres.DB)
}

func (s *LedgerPostgresSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "balances", "ledger_totals")
	s.Require().NoError(err)
}

func (s *LedgerPostgresSuite) TestSetCapOnce() {
	ctx := context.Background()

	s.Require().NoError(s.store.SetCap(ctx, 1000))
	s.ErrorIs(s.store.SetCap(ctx, 2000), sentinel.ErrConflict)

	totals, err := s.store.Totals(ctx)
	s.Require().NoError(err)
	s.True(totals.CapSet)
	s.Equal(uint64(1000), totals.Cap)
}

// TestConcurrentSetCap verifies that racing cap writes yield exactly one
// winner.
func (s *LedgerPostgresSuite) TestConcurrentSetCap() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if err := s.store.SetCap(ctx, uint64(1000+idx)); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one cap write should win")
}

func (s *LedgerPostgresSuite) TestIssueMoveAndBurnTotals() {
	ctx := context.Background()

	s.Require().NoError(s.store.Issue(ctx, walletA, 500))
	s.Require().NoError(s.store.Issue(ctx, walletA, 100))

	balance, err := s.store.BalanceOf(ctx, walletA)
	s.Require().NoError(err)
	s.Equal(uint64(600), balance)

	s.Require().NoError(s.store.Move(ctx, walletA, walletB, 200))

	totals, err := s.store.Totals(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(600), totals.Supply)
	s.Equal(uint64(600), totals.Issued)

	s.Require().NoError(s.store.Burn(ctx, walletB, 150))

	totals, err = s.store.Totals(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(450), totals.Supply)
	s.Equal(uint64(600), totals.Issued, "issued never decreases")

	balances, _, err := s.store.Snapshot(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(400), balances[walletA])
	s.Equal(uint64(50), balances[walletB])
}

func (s *LedgerPostgresSuite) TestUnknownWalletReadsZero() {
	balance, err := s.store.BalanceOf(context.Background(), walletB)
	s.NoError(err)
	s.Zero(balance)
}

// TestConcurrentMoves hammers one source wallet with competing debits and
// verifies the balance guard never lets the total go negative.
func (s *LedgerPostgresSuite) TestConcurrentMoves() {
	ctx := context.Background()
	const goroutines = 30

	s.Require().NoError(s.store.Issue(ctx, walletA, 100))

	var wg sync.WaitGroup
	var moved atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Move(ctx, walletA, walletB, 10); err == nil {
				moved.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(10), moved.Load(), "only ten 10-token moves fit in 100")

	balanceA, err := s.store.BalanceOf(ctx, walletA)
	s.Require().NoError(err)
	balanceB, err := s.store.BalanceOf(ctx, walletB)
	s.Require().NoError(err)
	s.Zero(balanceA)
	s.Equal(uint64(100), balanceB)

	totals, err := s.store.Totals(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(100), totals.Supply, "moves conserve supply")
}
