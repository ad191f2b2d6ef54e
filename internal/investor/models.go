package investor

import (
	"time"

	id "ledgergate/pkg/domain"
)

// AttributeType enumerates the identity attributes tracked per investor.
type AttributeType string

const (
	AttributeKYC          AttributeType = "kyc"
	AttributeAccredited   AttributeType = "accredited"
	AttributeQualified    AttributeType = "qualified"
	AttributeProfessional AttributeType = "professional"

	// AttributeForceFullTransfer marks an investor whose transfers must
	// move their entire transferable balance, independent of the global
	// full-transfer flags.
	AttributeForceFullTransfer AttributeType = "force_full_transfer"
)

// ParseAttributeType maps a wire name to an AttributeType.
func ParseAttributeType(name string) (AttributeType, bool) {
	switch AttributeType(name) {
	case AttributeKYC, AttributeAccredited, AttributeQualified,
		AttributeProfessional, AttributeForceFullTransfer:
		return AttributeType(name), true
	}
	return "", false
}

// AttributeValue is the stored state of one attribute.
type AttributeValue uint8

const (
	AttributeNone AttributeValue = iota
	AttributePending
	AttributeApproved
	AttributeRejected
)

// Attribute couples a value with its expiration. An attribute whose expiry
// has passed reads as AttributeNone regardless of the stored value;
// expired approvals never count as satisfied.
type Attribute struct {
	Value     AttributeValue
	Expiry    time.Time
	ProofHash string
}

// EffectiveValue applies the expiry policy at the given instant. A zero
// expiry means the attribute does not expire.
func (a Attribute) EffectiveValue(now time.Time) AttributeValue {
	if !a.Expiry.IsZero() && !a.Expiry.After(now) {
		return AttributeNone
	}
	return a.Value
}

// Investor is the aggregate for one registered real-world entity.
//
// Invariants:
//   - ID is immutable once registered; investors are never deleted
//   - CollisionHash is unique across all investors
//   - Every wallet in Wallets maps back to this investor and to no other
type Investor struct {
	ID            id.InvestorID
	Country       string
	CollisionHash string
	Attributes    map[AttributeType]Attribute
	Wallets       []id.Address
}

// HasWallet reports whether the wallet is already bound to this investor.
func (inv *Investor) HasWallet(wallet id.Address) bool {
	for _, w := range inv.Wallets {
		if w == wallet {
			return true
		}
	}
	return false
}
