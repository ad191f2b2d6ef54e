package compliance

import (
	"context"
	"time"

	"ledgergate/pkg/domain"
)

// Verdict is the outcome of a compliance evaluation. Code zero with the
// canonical message signals the operation may proceed; any other code is
// the first rule that failed.
type Verdict struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Valid is the success verdict.
func Valid() Verdict { return Verdict{Code: CodeValid, Message: ValidMessage} }

func reject(code int) Verdict { return Verdict{Code: code, Message: MessageFor(code)} }

// OK reports whether the verdict allows the operation.
func (v Verdict) OK() bool { return v.Code == CodeValid }

// Engine evaluates whether a balance-changing operation may proceed. The
// ledger depends only on this interface; the deployment picks a variant.
//
// Evaluation is an ordered chain of predicates and the first failure wins.
// The ordering is part of the contract: callers branch on which code comes
// back, so two engines given the same state must return the same code.
// The error return is for infrastructure failures only; a policy rejection
// is a non-OK verdict with a nil error.
type Engine interface {
	PreIssuanceCheck(ctx context.Context, wallet domain.Address, value uint64, issuanceTime time.Time) (Verdict, error)
	PreTransferCheck(ctx context.Context, from, to domain.Address, value uint64) (Verdict, error)
}
