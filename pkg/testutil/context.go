package testutil

import (
	"context"
	"net/http"
	"time"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/requestcontext"
)

// Ctx builds a request-scoped context with a caller identity and a fixed
// execution time, the way the HTTP middleware would for a real request.
func Ctx(caller id.Address, at time.Time) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), caller)
	return requestcontext.WithTime(ctx, at)
}

// CtxAt builds an unauthenticated context with a fixed execution time.
func CtxAt(at time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), at)
}

// WithCaller adds a caller address to the request context. This simulates
// what the auth middleware would do for authenticated requests. Invalid
// addresses are silently ignored.
func WithCaller(req *http.Request, caller string) *http.Request {
	if addr, err := id.ParseAddress(caller); err == nil {
		return req.WithContext(requestcontext.WithCaller(req.Context(), addr))
	}
	return req
}

// WithTime pins the request's execution time.
func WithTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
