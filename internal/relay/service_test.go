package relay

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ledgergate/internal/trust"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/requestcontext"
)

// =============================================================================
// Relay Service Test Suite
// =============================================================================
// Justification for unit tests: the relay is the signature boundary. The
// fixed check order, the strict nonce equality, and the
// exactly-once-per-success nonce advance are what make replayed or
// tampered messages inert.

const (
	masterAddr  = id.Address("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	gatewayAddr = id.Address("ffffffffffffffffffffffffffffffffffffffff")
	walletAddr  = id.Address("1111111111111111111111111111111111111111")
)

// stubResolver maps investors to wallet lists.
type stubResolver map[id.InvestorID][]id.Address

func (r stubResolver) WalletsOf(_ context.Context, investorID id.InvestorID) ([]id.Address, error) {
	return r[investorID], nil
}

// recordingForwarder captures forwarded calls and can be set to fail.
type recordingForwarder struct {
	calls  int
	caller id.Address
	fail   error
}

func (f *recordingForwarder) Forward(ctx context.Context, _ id.Address, _ []byte) error {
	if f.fail != nil {
		return f.fail
	}
	f.calls++
	f.caller = requestcontext.Caller(ctx)
	return nil
}

type RelayServiceSuite struct {
	suite.Suite
	forwarder *recordingForwarder
	service   *Service
	pub       ed25519.PublicKey
	priv      ed25519.PrivateKey
	now       time.Time
	ctx       context.Context
}

func TestRelayServiceSuite(t *testing.T) {
	suite.Run(t, new(RelayServiceSuite))
}

func (s *RelayServiceSuite) SetupTest() {
	authz := trust.New(trust.NewInMemoryStore())
	s.Require().NoError(authz.Bootstrap(context.Background(), masterAddr))

	var err error
	s.pub, s.priv, err = ed25519.GenerateKey(rand.Reader)
	s.Require().NoError(err)

	s.forwarder = &recordingForwarder{}
	s.service = New(
		NewInMemoryKeyStore(),
		NewInMemoryNonceStore(),
		stubResolver{"inv-1": {walletAddr}},
		s.forwarder,
		authz,
		gatewayAddr,
	)

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(
		requestcontext.WithCaller(context.Background(), masterAddr), s.now)

	s.Require().NoError(s.service.RegisterKey(s.ctx, "inv-1", s.pub))
}

// signed builds a valid request for inv-1 at the current nonce.
func (s *RelayServiceSuite) signed(nonce uint64) Request {
	req := Request{
		Destination:    gatewayAddr,
		Data:           []byte(`{"method":"POST","path":"/v1/transfers"}`),
		Nonce:          nonce,
		SenderInvestor: "inv-1",
		BlockLimit:     uint64(s.now.Add(time.Hour).Unix()),
	}
	req.Signature = req.Sign(s.priv)
	return req
}

// =============================================================================
// Digest and Signature Tests
// =============================================================================

func (s *RelayServiceSuite) TestDigest() {
	s.Run("deterministic", func() {
		req := s.signed(0)
		s.Equal(req.Digest(), req.Digest())
	})

	s.Run("every field is bound", func() {
		base := s.signed(0)
		variants := []Request{base, base, base, base, base}
		variants[0].Destination = walletAddr
		variants[1].Data = []byte("other")
		variants[2].Nonce = 1
		variants[3].SenderInvestor = "inv-2"
		variants[4].BlockLimit = 1

		for _, v := range variants {
			s.NotEqual(base.Digest(), v.Digest())
		}
	})

	s.Run("length prefixing prevents field sliding", func() {
		a := Request{SenderInvestor: "ab", Data: []byte("c")}
		b := Request{SenderInvestor: "a", Data: []byte("bc")}
		s.NotEqual(a.Digest(), b.Digest())
	})

	s.Run("sign and verify round trip", func() {
		req := s.signed(0)
		s.True(req.Verify(s.pub))

		req.Data = append(req.Data, '!')
		s.False(req.Verify(s.pub))
	})
}

// =============================================================================
// Key Registration Tests
// =============================================================================

func (s *RelayServiceSuite) TestRegisterKey() {
	s.Run("unauthenticated caller rejected", func() {
		err := s.service.RegisterKey(context.Background(), "inv-2", s.pub)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("key must be 32 bytes", func() {
		err := s.service.RegisterKey(s.ctx, "inv-2", s.pub[:16])
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rotation invalidates the old key", func() {
		newPub, newPriv, err := ed25519.GenerateKey(rand.Reader)
		s.Require().NoError(err)
		s.Require().NoError(s.service.RegisterKey(s.ctx, "inv-1", newPub))

		err = s.service.Execute(s.ctx, s.signed(0))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		req := s.signed(0)
		req.Signature = req.Sign(newPriv)
		s.NoError(s.service.Execute(s.ctx, req))
	})
}

// =============================================================================
// Execute Tests
// =============================================================================

func (s *RelayServiceSuite) TestExecute() {
	s.Run("unknown destination rejected", func() {
		req := s.signed(0)
		req.Destination = walletAddr
		err := s.service.Execute(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("expired deadline rejected", func() {
		req := s.signed(0)
		req.BlockLimit = uint64(s.now.Add(-time.Second).Unix())
		req.Signature = req.Sign(s.priv)
		err := s.service.Execute(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unregistered investor rejected", func() {
		req := s.signed(0)
		req.SenderInvestor = "inv-unknown"
		req.Signature = req.Sign(s.priv)
		err := s.service.Execute(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("tampered payload rejected", func() {
		req := s.signed(0)
		req.Data = []byte("tampered")
		err := s.service.Execute(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("forwards as the investor's first wallet", func() {
		s.Require().NoError(s.service.Execute(s.ctx, s.signed(0)))

		s.Equal(1, s.forwarder.calls)
		s.Equal(walletAddr, s.forwarder.caller)

		nonce, err := s.service.Nonce(s.ctx, "inv-1")
		s.NoError(err)
		s.Equal(uint64(1), nonce)
	})

	s.Run("replay of a consumed nonce rejected", func() {
		err := s.service.Execute(s.ctx, s.signed(0))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.ErrorContains(err, "relay nonce mismatch: expected 1")
	})

	s.Run("future nonce rejected", func() {
		err := s.service.Execute(s.ctx, s.signed(5))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("failed forward leaves the nonce untouched", func() {
		s.forwarder.fail = dErrors.New(dErrors.CodeValidation, "downstream rejected")
		err := s.service.Execute(s.ctx, s.signed(1))
		s.Error(err)

		nonce, nErr := s.service.Nonce(s.ctx, "inv-1")
		s.NoError(nErr)
		s.Equal(uint64(1), nonce)

		s.forwarder.fail = nil
		s.NoError(s.service.Execute(s.ctx, s.signed(1)))
	})
}
