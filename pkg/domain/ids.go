// Package domain holds shared identifier value types. Parsing happens at
// trust boundaries (HTTP handlers, relay) so services can assume validity.
package domain

import (
	"encoding/hex"
	"strings"

	dErrors "ledgergate/pkg/domain-errors"
)

// AddressLen is the fixed width, in bytes, of a wallet address.
const AddressLen = 20

// Address identifies a wallet or an acting account. It is stored in its
// lowercase hex form without a prefix.
type Address string

// ParseAddress validates and normalizes a wallet address. Accepts an
// optional 0x prefix; the canonical form is bare lowercase hex.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be hex encoded")
	}
	if len(raw) != AddressLen {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "address must be %d bytes", AddressLen)
	}
	return Address(s), nil
}

func (a Address) String() string { return string(a) }

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a == "" }

// InvestorID is an opaque, caller-supplied investor identifier. It is
// immutable once registered.
type InvestorID string

// ParseInvestorID validates an investor identifier: at least one byte of
// opaque content.
func ParseInvestorID(s string) (InvestorID, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "investor id is required")
	}
	return InvestorID(s), nil
}

func (id InvestorID) String() string { return string(id) }

// IsZero reports whether the investor id is unset.
func (id InvestorID) IsZero() bool { return id == "" }
