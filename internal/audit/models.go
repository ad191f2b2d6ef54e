package audit

import (
	"time"

	id "ledgergate/pkg/domain"
)

// Event is emitted from domain logic to capture one logical state change.
// Exactly one event per change, and only after the operation committed;
// a failed or rejected operation emits nothing. Keep it transport-agnostic
// so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Action    Action

	// Actor is the resolved caller that performed the mutation.
	Actor id.Address
	// Wallet / Investor identify the affected entity when applicable.
	Wallet   id.Address
	Investor id.InvestorID

	// Field/OldValue/NewValue describe configuration changes
	// (rule index, flag name, country) with before/after values.
	Field    string
	OldValue string
	NewValue string

	// Amount is the token value moved for ledger operations.
	Amount uint64
	// Reason carries lock/burn/seize reason strings.
	Reason string

	// RequestID correlates the event with the originating request.
	RequestID string
}

// Action enumerates every auditable state change.
type Action string

const (
	// Trust registry
	ActionRoleAdded   Action = "role_added"
	ActionRoleRemoved Action = "role_removed"

	// Investor registry
	ActionInvestorAdded          Action = "investor_added"
	ActionInvestorCountryChanged Action = "investor_country_changed"
	ActionInvestorAttributeSet   Action = "investor_attribute_set"
	ActionInvestorWalletAdded    Action = "investor_wallet_added"

	// Compliance configuration
	ActionRuleChanged          Action = "rule_changed"
	ActionFlagChanged          Action = "flag_changed"
	ActionCountryComplianceSet Action = "country_compliance_set"

	// Wallet manager
	ActionWalletClassified   Action = "wallet_classified"
	ActionWalletUnclassified Action = "wallet_unclassified"

	// Lock manager
	ActionLockAdded        Action = "lock_added"
	ActionLockRemoved      Action = "lock_removed"
	ActionInvestorLocked   Action = "investor_locked"
	ActionInvestorUnlocked Action = "investor_unlocked"

	// Ledger
	ActionCapSet            Action = "cap_set"
	ActionTokensIssued      Action = "tokens_issued"
	ActionTokensTransferred Action = "tokens_transferred"
	ActionTokensBurned      Action = "tokens_burned"
	ActionTokensSeized      Action = "tokens_seized"

	// Relay
	ActionRelayKeyRegistered Action = "relay_key_registered"
	ActionRelayExecuted      Action = "relay_executed"
)
