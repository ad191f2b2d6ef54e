package compliance

import "time"

// transferFacts is everything the transfer rule chain needs, gathered up
// front so the evaluation itself is pure.
type transferFacts struct {
	cfg      *Config
	counters Counters
	now      time.Time
	value    uint64

	fromFound   bool
	fromSpecial bool
	from        InvestorFacts

	toFound   bool
	toSpecial bool
	to        InvestorFacts

	transferable uint64

	fromHoldings uint64
	toHoldings   uint64
}

// issuanceFacts is the issuance counterpart of transferFacts.
type issuanceFacts struct {
	cfg      *Config
	counters Counters
	now      time.Time
	value    uint64

	issuanceTime time.Time

	toFound   bool
	toSpecial bool
	to        InvestorFacts

	toHoldings uint64
}

// evaluateTransfer applies the transfer rule chain. Pure domain logic,
// no I/O. Rule priority (fail-fast):
//  1. Destination region must not be forbidden
//  2. Destination must be a registered investor or a special wallet
//  3. Full-transfer policy
//  4. Resulting holdings within configured min/max
//  5. Region investor-count caps for new holders
//  6. Accreditation requirements
//  7. Flow-back window
//  8. Moved value within the source's transferable balance
//
// Special wallets bypass the investor-identity rules (3-7) on their side
// of the operation, but never the forbidden-region or lock rules.
func evaluateTransfer(in transferFacts) Verdict {
	// Rule 1: destination region must not be forbidden.
	if in.toFound && in.to.Region == RegionForbidden {
		return reject(CodeDestinationRestricted)
	}

	// Rule 2: destination must be registered or special.
	if !in.toFound && !in.toSpecial {
		return reject(CodeWalletUnregistered)
	}

	// Rule 3: full-transfer policy. The source must move its entire
	// transferable balance when a global flag or either party's
	// investor-level flag demands it.
	if !in.fromSpecial && fullTransferRequired(in) && in.value != in.transferable {
		return reject(CodeFullTransferRequired)
	}

	// Rule 4: resulting holdings within min/max. The source may always
	// exit completely; a partial exit must not leave dust below the
	// minimum.
	if min := in.cfg.Rules[RuleMinimumHoldingsPerInvestor]; min > 0 {
		if !in.toSpecial && in.toHoldings+in.value < min {
			return reject(CodeHoldingsBelowMin)
		}
		if !in.fromSpecial && in.fromFound {
			remaining := in.fromHoldings - minUint(in.fromHoldings, in.value)
			if remaining > 0 && remaining < min {
				return reject(CodeHoldingsBelowMin)
			}
		}
	}
	if max := in.cfg.Rules[RuleMaximumHoldingsPerInvestor]; max > 0 && !in.toSpecial {
		if in.toHoldings+in.value > max {
			return reject(CodeHoldingsAboveMax)
		}
	}

	// Rule 5: region investor-count caps, only when the destination
	// would become a new holder.
	if !in.toSpecial && in.toHoldings == 0 && in.value > 0 {
		if v := checkHolderLimits(in.cfg, in.counters, in.to.Region); !v.OK() {
			return v
		}
	}

	// Rule 6: accreditation.
	if !in.toSpecial {
		if in.cfg.Flags[FlagForceAccredited] && !in.to.Accredited {
			return reject(CodeAccreditationRequired)
		}
		if in.cfg.Flags[FlagForceAccreditedUS] && in.to.Region == RegionUS && !in.to.Accredited {
			return reject(CodeUSAccreditationRequired)
		}
	}

	// Rule 7: flow-back. Tokens re-entering the US from abroad are
	// blocked until the configured cutoff.
	if end := in.cfg.Rules[RuleBlockFlowbackEndTime]; end > 0 && !in.toSpecial {
		if in.to.Region == RegionUS && in.from.Region != RegionUS && uint64(in.now.Unix()) < end {
			return reject(CodeFlowbackRestricted)
		}
	}

	// Rule 8: the moved value must fit within the source's transferable
	// balance.
	if in.value > in.transferable {
		return reject(CodeInsufficientUnlocked)
	}

	return Valid()
}

// evaluateIssuance applies the issuance rule chain. Issuance has no
// source side, so the lock rule is replaced by the back-dating rule.
func evaluateIssuance(in issuanceFacts) Verdict {
	// Rule 1: destination region must not be forbidden.
	if in.toFound && in.to.Region == RegionForbidden {
		return reject(CodeDestinationRestricted)
	}

	// Rule 2: destination must be registered or special.
	if !in.toFound && !in.toSpecial {
		return reject(CodeWalletUnregistered)
	}

	if !in.toSpecial {
		// Rule 4: resulting holdings within min/max.
		if min := in.cfg.Rules[RuleMinimumHoldingsPerInvestor]; min > 0 && in.toHoldings+in.value < min {
			return reject(CodeHoldingsBelowMin)
		}
		if max := in.cfg.Rules[RuleMaximumHoldingsPerInvestor]; max > 0 && in.toHoldings+in.value > max {
			return reject(CodeHoldingsAboveMax)
		}

		// Rule 5: region investor-count caps for new holders.
		if in.toHoldings == 0 && in.value > 0 {
			if v := checkHolderLimits(in.cfg, in.counters, in.to.Region); !v.OK() {
				return v
			}
		}

		// Rule 6: accreditation.
		if in.cfg.Flags[FlagForceAccredited] && !in.to.Accredited {
			return reject(CodeAccreditationRequired)
		}
		if in.cfg.Flags[FlagForceAccreditedUS] && in.to.Region == RegionUS && !in.to.Accredited {
			return reject(CodeUSAccreditationRequired)
		}
	}

	// Rule 8: back-dated issuance.
	if in.cfg.Flags[FlagDisallowBackDating] && !in.issuanceTime.IsZero() && in.issuanceTime.Before(in.now) {
		return reject(CodeBackDatingDisallowed)
	}

	return Valid()
}

// checkHolderLimits rejects an operation that would register one more
// holder than a configured count limit allows. A zero limit means
// unconfigured.
func checkHolderLimits(cfg *Config, counters Counters, region Region) Verdict {
	if limit := cfg.Rules[RuleTotalInvestorsLimit]; limit > 0 && counters.Total >= limit {
		return reject(CodeTotalInvestorsLimit)
	}
	switch region {
	case RegionUS:
		if limit := cfg.Rules[RuleUSInvestorsLimit]; limit > 0 && counters.US >= limit {
			return reject(CodeUSInvestorsLimit)
		}
	case RegionEU:
		if limit := cfg.Rules[RuleEURetailInvestorsLimit]; limit > 0 && counters.EU >= limit {
			return reject(CodeEUInvestorsLimit)
		}
	case RegionJP:
		if limit := cfg.Rules[RuleJPInvestorsLimit]; limit > 0 && counters.JP >= limit {
			return reject(CodeJPInvestorsLimit)
		}
	}
	return Valid()
}

func fullTransferRequired(in transferFacts) bool {
	if in.cfg.Flags[FlagForceFullTransfer] || in.cfg.Flags[FlagWorldWideForceFullTransfer] {
		return true
	}
	if in.fromFound && in.from.ForceFullTransfer {
		return true
	}
	return in.toFound && in.to.ForceFullTransfer
}

func minUint(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
