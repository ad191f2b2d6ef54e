package wallet

import id "ledgergate/pkg/domain"

// Classification marks a wallet as one of the special operational wallet
// kinds. Special wallets receive relaxed compliance treatment: they can
// hold tokens without a bound investor and serve as seizure destinations
// or exchange counterparties.
type Classification uint8

const (
	ClassNone Classification = iota
	ClassIssuer
	ClassPlatform
	ClassExchange
)

var classNames = map[Classification]string{
	ClassNone:     "none",
	ClassIssuer:   "issuer",
	ClassPlatform: "platform",
	ClassExchange: "exchange",
}

func (c Classification) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseClassification maps a wire name back to a classification.
func ParseClassification(s string) (Classification, bool) {
	for c, name := range classNames {
		if name == s {
			return c, true
		}
	}
	return ClassNone, false
}

// Record is a classified wallet. Owner is set only for exchange wallets
// and names the EXCHANGE-role account operating the wallet.
type Record struct {
	Wallet         id.Address
	Classification Classification
	Owner          id.Address
}
