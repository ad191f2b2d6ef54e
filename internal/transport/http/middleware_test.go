package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/requestcontext"
)

// =============================================================================
// Middleware Test Suite
// =============================================================================
// Justification for unit tests: the middlewares must be idempotent so a
// relayed in-process request keeps the caller, clock and correlation ID
// of the originating request instead of being re-stamped.

var signingKey = []byte("test-signing-key")

const callerHex = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

type MiddlewareSuite struct {
	suite.Suite
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

// capture runs a request through the middleware chain and hands the
// final context to the inspection callback.
func capture(mw func(http.Handler) http.Handler, req *http.Request, inspect func(r *http.Request)) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		inspect(r)
	})).ServeHTTP(rec, req)
	return rec
}

func (s *MiddlewareSuite) token(subject string) string {
	claims := jwt.RegisteredClaims{Subject: subject}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	s.Require().NoError(err)
	return raw
}

func (s *MiddlewareSuite) TestRequestID() {
	s.Run("generates an id when missing", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		var got string
		rec := capture(RequestID, req, func(r *http.Request) {
			got = requestcontext.RequestID(r.Context())
		})
		s.NotEmpty(got)
		s.Equal(got, rec.Header().Get("X-Request-ID"))
	})

	s.Run("honors the incoming header", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-42")
		var got string
		capture(RequestID, req, func(r *http.Request) {
			got = requestcontext.RequestID(r.Context())
		})
		s.Equal("req-42", got)
	})

	s.Run("keeps an already-assigned id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(requestcontext.WithRequestID(req.Context(), "origin-1"))
		req.Header.Set("X-Request-ID", "other")
		var got string
		capture(RequestID, req, func(r *http.Request) {
			got = requestcontext.RequestID(r.Context())
		})
		s.Equal("origin-1", got)
	})
}

func (s *MiddlewareSuite) TestRequestTime() {
	s.Run("pins a clock when missing", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		var got time.Time
		capture(RequestTime, req, func(r *http.Request) {
			got = requestcontext.Now(r.Context())
		})
		s.False(got.IsZero())
	})

	s.Run("keeps an already-pinned clock", func() {
		pinned := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(requestcontext.WithTime(req.Context(), pinned))
		var got time.Time
		capture(RequestTime, req, func(r *http.Request) {
			got = requestcontext.Now(r.Context())
		})
		s.Equal(pinned, got)
	})
}

func (s *MiddlewareSuite) TestAuth() {
	mw := Auth(signingKey)

	s.Run("no token proceeds unauthenticated", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		var got id.Address
		rec := capture(mw, req, func(r *http.Request) {
			got = requestcontext.Caller(r.Context())
		})
		s.Equal(http.StatusOK, rec.Code)
		s.True(got.IsZero())
	})

	s.Run("valid token resolves the caller", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+s.token(callerHex))
		var got id.Address
		capture(mw, req, func(r *http.Request) {
			got = requestcontext.Caller(r.Context())
		})
		s.Equal(id.Address(callerHex), got)
	})

	s.Run("malformed header rejected", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := capture(mw, req, func(*http.Request) {
			s.Fail("handler must not run")
		})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("wrong signing key rejected", func() {
		claims := jwt.RegisteredClaims{Subject: callerHex}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-key"))
		s.Require().NoError(err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := capture(mw, req, func(*http.Request) {
			s.Fail("handler must not run")
		})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("non-address subject rejected", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+s.token("not-an-address"))
		rec := capture(mw, req, func(*http.Request) {
			s.Fail("handler must not run")
		})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("already-resolved caller is left untouched", func() {
		relayed := id.Address("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(requestcontext.WithCaller(req.Context(), relayed))
		req.Header.Set("Authorization", "Bearer "+s.token(callerHex))
		var got id.Address
		capture(mw, req, func(r *http.Request) {
			got = requestcontext.Caller(r.Context())
		})
		s.Equal(relayed, got)
	})
}
