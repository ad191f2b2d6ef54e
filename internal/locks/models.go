package locks

import (
	"time"

	dErrors "ledgergate/pkg/domain-errors"
)

// Record is one manual or issuance-time lock on a wallet. Records are
// indexed by position in the wallet's list; removal swaps the last record
// into the vacated slot, so indices are not stable across removals.
type Record struct {
	Value       uint64    `json:"value"`
	ReasonCode  uint64    `json:"reason_code"`
	Reason      string    `json:"reason"`
	ReleaseTime time.Time `json:"release_time"`
}

// Validate checks the record's parameters against the creation time.
// Callers that pair a record with another mutation run this before
// committing anything, so a malformed record cannot fail the operation
// halfway.
func (r Record) Validate(now time.Time) error {
	if r.Value == 0 {
		return dErrors.New(dErrors.CodeValidation, "lock value must be positive")
	}
	if !r.ReleaseTime.After(now) {
		return dErrors.New(dErrors.CodeValidation, "lock release time must be in the future")
	}
	return nil
}

// Active reports whether the record still withholds tokens at the given
// time.
func (r Record) Active(now time.Time) bool {
	return r.ReleaseTime.After(now)
}
