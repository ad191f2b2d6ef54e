package compliance

// Rule codes are the stable, documented integers carried by compliance
// errors. Callers branch on the code, never on the message. Codes are
// spaced by rule category so new rules can slot in without renumbering.
const (
	// CodeValid signals success; it is never carried by an error.
	CodeValid = 0

	// Identity / registry category.
	CodeWalletOwnershipConflict = 5
	CodeDestinationRestricted   = 10
	CodeWalletUnregistered      = 15

	// Transfer-shape category.
	CodeFullTransferRequired = 20
	CodeHoldingsBelowMin     = 25
	CodeHoldingsAboveMax     = 26

	// Investor-count category.
	CodeTotalInvestorsLimit = 30
	CodeUSInvestorsLimit    = 31
	CodeEUInvestorsLimit    = 32
	CodeJPInvestorsLimit    = 33

	// Accreditation category.
	CodeAccreditationRequired   = 40
	CodeUSAccreditationRequired = 41

	// Time-window category.
	CodeFlowbackRestricted    = 50
	CodeBackDatingDisallowed  = 55
	CodeInsufficientUnlocked  = 60
	CodeWhitelistRequired     = 65
	CodeCapExceeded           = 70
)

// ValidMessage is the message paired with CodeValid.
const ValidMessage = "Valid"

var codeMessages = map[int]string{
	CodeValid:                   ValidMessage,
	CodeWalletOwnershipConflict: "Wallet already bound to another investor",
	CodeDestinationRestricted:   "Destination country region is forbidden",
	CodeWalletUnregistered:      "Wallet is not bound to a registered investor",
	CodeFullTransferRequired:    "Only full transfers are allowed",
	CodeHoldingsBelowMin:        "Resulting holdings below the configured minimum",
	CodeHoldingsAboveMax:        "Resulting holdings above the configured maximum",
	CodeTotalInvestorsLimit:     "Total investor limit reached",
	CodeUSInvestorsLimit:        "US investor limit reached",
	CodeEUInvestorsLimit:        "EU retail investor limit reached",
	CodeJPInvestorsLimit:        "Japan investor limit reached",
	CodeAccreditationRequired:   "Only accredited investors may hold tokens",
	CodeUSAccreditationRequired: "Only accredited US investors may hold tokens",
	CodeFlowbackRestricted:      "Transfers into the restricted region are blocked until the flow-back cutoff",
	CodeBackDatingDisallowed:    "Back-dated issuance is disallowed",
	CodeInsufficientUnlocked:    "Not enough unlocked tokens",
	CodeWhitelistRequired:       "Both parties must be registered investors",
	CodeCapExceeded:             "Issuance would exceed the cap",
}

// MessageFor returns the canonical message for a rule code.
func MessageFor(code int) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return "Compliance check failed"
}
