//go:build integration

package trust_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"ledgergate/internal/trust"
	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
	"ledgergate/pkg/testutil/containers"
)

const (
	ownerAccount = id.Address("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	agentAccount = id.Address("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type TrustPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *trust.PostgresStore
}

func TestTrustPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(TrustPostgresSuite))
}

func (s *TrustPostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = trust.NewPostgresStore(s.postgres.DB)
}

func (s *TrustPostgresSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "trust_roles")
	s.Require().NoError(err)
}

func (s *TrustPostgresSuite) TestRoleLifecycle() {
	ctx := context.Background()

	s.Run("unassigned account is not found", func() {
		_, err := s.store.GetRole(ctx, agentAccount)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("assignments survive a reconnect", func() {
		s.Require().NoError(s.store.SetRole(ctx, agentAccount, trust.RoleIssuer))

		reopened := trust.NewPostgresStore(s.postgres.DB)
		role, err := reopened.GetRole(ctx, agentAccount)
		s.Require().NoError(err)
		s.Equal(trust.RoleIssuer, role)
	})

	s.Run("reassignment overwrites", func() {
		s.Require().NoError(s.store.SetRole(ctx, agentAccount, trust.RoleExchange))

		role, err := s.store.GetRole(ctx, agentAccount)
		s.Require().NoError(err)
		s.Equal(trust.RoleExchange, role)
	})

	s.Run("removal clears the assignment", func() {
		s.Require().NoError(s.store.RemoveRole(ctx, agentAccount))

		_, err := s.store.GetRole(ctx, agentAccount)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("removing an unassigned account is not found", func() {
		err := s.store.RemoveRole(ctx, agentAccount)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *TrustPostgresSuite) TestOwnerFollowsMasterRole() {
	ctx := context.Background()

	s.Run("no master means no owner", func() {
		_, err := s.store.Owner(ctx)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("owner is the account holding master", func() {
		s.Require().NoError(s.store.SetRole(ctx, ownerAccount, trust.RoleMaster))

		owner, err := s.store.Owner(ctx)
		s.Require().NoError(err)
		s.Equal(ownerAccount, owner)
	})

	s.Run("demoting the master vacates ownership", func() {
		s.Require().NoError(s.store.SetRole(ctx, ownerAccount, trust.RoleIssuer))

		_, err := s.store.Owner(ctx)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *TrustPostgresSuite) TestSnapshot() {
	ctx := context.Background()

	s.Require().NoError(s.store.SetRole(ctx, ownerAccount, trust.RoleMaster))
	s.Require().NoError(s.store.SetRole(ctx, agentAccount, trust.RoleTransferAgent))

	roles, err := s.store.Snapshot(ctx)
	s.Require().NoError(err)
	s.Equal(map[id.Address]trust.Role{
		ownerAccount: trust.RoleMaster,
		agentAccount: trust.RoleTransferAgent,
	}, roles)
}
