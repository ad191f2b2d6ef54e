//go:build integration

package wallet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"ledgergate/internal/wallet"
	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
	"ledgergate/pkg/testutil/containers"
)

const (
	classifiedWallet = id.Address("1111111111111111111111111111111111111111")
	operatorAccount  = id.Address("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type WalletPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *wallet.PostgresStore
}

func TestWalletPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(WalletPostgresSuite))
}

func (s *WalletPostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = wallet.NewPostgresStore(s.postgres.DB)
}

func (s *WalletPostgresSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "wallet_classifications")
	s.Require().NoError(err)
}

func (s *WalletPostgresSuite) TestPutGetDelete() {
	ctx := context.Background()

	s.Run("unclassified wallet is not found", func() {
		_, err := s.store.Get(ctx, classifiedWallet)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("round trips an exchange record with its owner", func() {
		err := s.store.Put(ctx, &wallet.Record{
			Wallet:         classifiedWallet,
			Classification: wallet.ClassExchange,
			Owner:          operatorAccount,
		})
		s.Require().NoError(err)

		rec, err := s.store.Get(ctx, classifiedWallet)
		s.Require().NoError(err)
		s.Equal(wallet.ClassExchange, rec.Classification)
		s.Equal(operatorAccount, rec.Owner)
	})

	s.Run("double classification conflicts", func() {
		err := s.store.Put(ctx, &wallet.Record{
			Wallet:         classifiedWallet,
			Classification: wallet.ClassIssuer,
		})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("delete frees the wallet for reclassification", func() {
		s.Require().NoError(s.store.Delete(ctx, classifiedWallet))

		err := s.store.Put(ctx, &wallet.Record{
			Wallet:         classifiedWallet,
			Classification: wallet.ClassIssuer,
		})
		s.NoError(err)
	})

	s.Run("deleting an unclassified wallet is not found", func() {
		err := s.store.Delete(ctx, id.Address("2222222222222222222222222222222222222222"))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *WalletPostgresSuite) TestEmptyOwnerRoundTrip() {
	ctx := context.Background()

	err := s.store.Put(ctx, &wallet.Record{
		Wallet:         classifiedWallet,
		Classification: wallet.ClassPlatform,
	})
	s.Require().NoError(err)

	rec, err := s.store.Get(ctx, classifiedWallet)
	s.Require().NoError(err)
	s.True(rec.Owner.IsZero())

	records, err := s.store.Snapshot(ctx)
	s.Require().NoError(err)
	s.Len(records, 1)
	s.Equal(wallet.ClassPlatform, records[0].Classification)
}
