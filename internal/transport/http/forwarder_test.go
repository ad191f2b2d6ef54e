package http

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"

	"ledgergate/internal/compliance"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/httputil"
)

// =============================================================================
// Router Forwarder Test Suite
// =============================================================================
// Justification for unit tests: the forwarder is the relay's only path
// into the core. Its envelope validation and error reconstruction decide
// what a signed message can reach and what its sender learns on failure.

type ForwarderSuite struct {
	suite.Suite
	mux       *http.ServeMux
	forwarder *RouterForwarder
}

func TestForwarderSuite(t *testing.T) {
	suite.Run(t, new(ForwarderSuite))
}

func (s *ForwarderSuite) SetupTest() {
	s.mux = http.NewServeMux()
	s.forwarder = NewRouterForwarder(s.mux)
}

func (s *ForwarderSuite) forward(data string) error {
	return s.forwarder.Forward(context.Background(), id.Address(""), []byte(data))
}

func (s *ForwarderSuite) TestEnvelopeValidation() {
	s.Run("malformed json rejected", func() {
		err := s.forward(`not-json`)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("read methods not allowed", func() {
		err := s.forward(`{"method":"GET","path":"/v1/balances"}`)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("relative paths rejected", func() {
		err := s.forward(`{"method":"POST","path":"v1/transfers"}`)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("relay routes cannot be re-entered", func() {
		err := s.forward(`{"method":"POST","path":"/relay/execute"}`)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ForwarderSuite) TestDispatch() {
	s.Run("success returns nil", func() {
		var gotBody []byte
		s.mux.HandleFunc("POST /v1/transfers", func(w http.ResponseWriter, r *http.Request) {
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusNoContent)
		})

		err := s.forward(`{"method":"POST","path":"/v1/transfers","body":{"value":10}}`)
		s.NoError(err)
		s.JSONEq(`{"value":10}`, string(gotBody))
	})

	s.Run("domain error is reconstructed with its code", func() {
		s.mux.HandleFunc("POST /v1/locks", func(w http.ResponseWriter, _ *http.Request) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "release time must be in the future"))
		})

		err := s.forward(`{"method":"POST","path":"/v1/locks"}`)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.ErrorContains(err, "release time must be in the future")
	})

	s.Run("compliance rejection keeps its rule code", func() {
		s.mux.HandleFunc("POST /v1/issuances", func(w http.ResponseWriter, _ *http.Request) {
			httputil.WriteError(w, dErrors.NewCompliance(compliance.CodeCapExceeded, compliance.MessageFor(compliance.CodeCapExceeded)))
		})

		err := s.forward(`{"method":"POST","path":"/v1/issuances"}`)
		code, ok := dErrors.RuleCode(err)
		s.True(ok)
		s.Equal(compliance.CodeCapExceeded, code)
	})

	s.Run("unroutable path surfaces as internal", func() {
		err := s.forward(`{"method":"POST","path":"/v1/nowhere"}`)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
