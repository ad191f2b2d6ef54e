package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "ledgergate/pkg/domain"
)

// =============================================================================
// Rule Chain Test Suite
// =============================================================================
// Justification for unit tests: the rule chain is pure domain logic with a
// documented priority order. Exercising every rejection code and the
// fail-fast ordering through the full service stack would require a wall of
// store fixtures per case.

type RuleChainSuite struct {
	suite.Suite
	now time.Time
}

func TestRuleChainSuite(t *testing.T) {
	suite.Run(t, new(RuleChainSuite))
}

func (s *RuleChainSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func usInvestor(investorID string) InvestorFacts {
	return InvestorFacts{ID: id.InvestorID(investorID), Country: "US", Region: RegionUS, Accredited: false}
}

func euInvestor(investorID string) InvestorFacts {
	return InvestorFacts{ID: id.InvestorID(investorID), Country: "DE", Region: RegionEU, Accredited: false}
}

// baseTransfer returns facts that pass every rule: two registered EU
// investors, unlimited config, enough transferable balance.
func (s *RuleChainSuite) baseTransfer() transferFacts {
	return transferFacts{
		cfg:          NewConfig(),
		now:          s.now,
		value:        100,
		fromFound:    true,
		from:         euInvestor("inv-from"),
		toFound:      true,
		to:           euInvestor("inv-to"),
		transferable: 1000,
		fromHoldings: 1000,
		toHoldings:   50,
	}
}

func (s *RuleChainSuite) baseIssuance() issuanceFacts {
	return issuanceFacts{
		cfg:        NewConfig(),
		now:        s.now,
		value:      100,
		toFound:    true,
		to:         euInvestor("inv-to"),
		toHoldings: 0,
	}
}

// =============================================================================
// Transfer Rules
// =============================================================================

func (s *RuleChainSuite) TestTransferValid() {
	v := evaluateTransfer(s.baseTransfer())
	s.True(v.OK())
	s.Equal(CodeValid, v.Code)
	s.Equal(ValidMessage, v.Message)
}

func (s *RuleChainSuite) TestTransferDestinationRestricted() {
	in := s.baseTransfer()
	in.to.Region = RegionForbidden

	v := evaluateTransfer(in)
	s.Equal(CodeDestinationRestricted, v.Code)
}

func (s *RuleChainSuite) TestTransferWalletUnregistered() {
	s.Run("unbound destination is rejected", func() {
		in := s.baseTransfer()
		in.toFound = false
		in.to = InvestorFacts{}

		v := evaluateTransfer(in)
		s.Equal(CodeWalletUnregistered, v.Code)
	})

	s.Run("special wallet destination passes without registration", func() {
		in := s.baseTransfer()
		in.toFound = false
		in.to = InvestorFacts{}
		in.toSpecial = true

		v := evaluateTransfer(in)
		s.True(v.OK())
	})
}

func (s *RuleChainSuite) TestTransferFullTransferPolicy() {
	s.Run("partial transfer rejected when flag is on", func() {
		in := s.baseTransfer()
		in.cfg.Flags[FlagForceFullTransfer] = true
		in.value = 400
		in.transferable = 1000

		v := evaluateTransfer(in)
		s.Equal(CodeFullTransferRequired, v.Code)
	})

	s.Run("exact transferable balance passes", func() {
		in := s.baseTransfer()
		in.cfg.Flags[FlagForceFullTransfer] = true
		in.value = 1000
		in.transferable = 1000
		in.fromHoldings = 1000

		v := evaluateTransfer(in)
		s.True(v.OK())
	})

	s.Run("worldwide flag forces the same policy", func() {
		in := s.baseTransfer()
		in.cfg.Flags[FlagWorldWideForceFullTransfer] = true
		in.value = 400

		v := evaluateTransfer(in)
		s.Equal(CodeFullTransferRequired, v.Code)
	})

	s.Run("source investor-level flag forces full transfer", func() {
		in := s.baseTransfer()
		in.from.ForceFullTransfer = true
		in.value = 400

		v := evaluateTransfer(in)
		s.Equal(CodeFullTransferRequired, v.Code)

		in.value = 1000
		s.True(evaluateTransfer(in).OK())
	})

	s.Run("destination investor-level flag forces full transfer", func() {
		in := s.baseTransfer()
		in.to.ForceFullTransfer = true
		in.value = 400

		v := evaluateTransfer(in)
		s.Equal(CodeFullTransferRequired, v.Code)
	})

	s.Run("special source is exempt", func() {
		in := s.baseTransfer()
		in.cfg.Flags[FlagForceFullTransfer] = true
		in.fromSpecial = true
		in.value = 400

		v := evaluateTransfer(in)
		s.True(v.OK())
	})
}

func (s *RuleChainSuite) TestTransferHoldingsBounds() {
	s.Run("destination below minimum", func() {
		in := s.baseTransfer()
		in.cfg.Rules[RuleMinimumHoldingsPerInvestor] = 500
		in.toHoldings = 0
		in.value = 100

		v := evaluateTransfer(in)
		s.Equal(CodeHoldingsBelowMin, v.Code)
	})

	s.Run("source may exit completely", func() {
		in := s.baseTransfer()
		in.cfg.Rules[RuleMinimumHoldingsPerInvestor] = 500
		in.fromHoldings = 1000
		in.value = 1000
		in.toHoldings = 0

		v := evaluateTransfer(in)
		s.True(v.OK())
	})

	s.Run("partial exit leaving dust below minimum", func() {
		in := s.baseTransfer()
		in.cfg.Rules[RuleMinimumHoldingsPerInvestor] = 500
		in.fromHoldings = 1000
		in.value = 600
		in.toHoldings = 0

		v := evaluateTransfer(in)
		s.Equal(CodeHoldingsBelowMin, v.Code)
	})

	s.Run("destination above maximum", func() {
		in := s.baseTransfer()
		in.cfg.Rules[RuleMaximumHoldingsPerInvestor] = 120
		in.toHoldings = 50
		in.value = 100

		v := evaluateTransfer(in)
		s.Equal(CodeHoldingsAboveMax, v.Code)
	})

	s.Run("special destination is exempt from bounds", func() {
		in := s.baseTransfer()
		in.cfg.Rules[RuleMaximumHoldingsPerInvestor] = 120
		in.toFound = false
		in.to = InvestorFacts{}
		in.toSpecial = true
		in.toHoldings = 0
		in.value = 1000
		in.fromHoldings = 1000

		v := evaluateTransfer(in)
		s.True(v.OK())
	})
}

func (s *RuleChainSuite) TestTransferHolderLimits() {
	s.Run("total limit blocks a new holder", func() {
		in := s.baseTransfer()
		in.cfg.Rules[RuleTotalInvestorsLimit] = 2
		in.counters = Counters{Total: 2}
		in.toHoldings = 0

		v := evaluateTransfer(in)
		s.Equal(CodeTotalInvestorsLimit, v.Code)
	})

	s.Run("existing holder is not counted again", func() {
		in := s.baseTransfer()
		in.cfg.Rules[RuleTotalInvestorsLimit] = 2
		in.counters = Counters{Total: 2}
		in.toHoldings = 50

		v := evaluateTransfer(in)
		s.True(v.OK())
	})

	s.Run("regional limits", func() {
		cases := []struct {
			name   string
			rule   int
			region Region
			count  Counters
			code   int
		}{
			{"us limit", RuleUSInvestorsLimit, RegionUS, Counters{US: 5}, CodeUSInvestorsLimit},
			{"eu limit", RuleEURetailInvestorsLimit, RegionEU, Counters{EU: 5}, CodeEUInvestorsLimit},
			{"jp limit", RuleJPInvestorsLimit, RegionJP, Counters{JP: 5}, CodeJPInvestorsLimit},
		}
		for _, tc := range cases {
			in := s.baseTransfer()
			in.cfg.Rules[tc.rule] = 5
			in.counters = tc.count
			in.to.Region = tc.region
			in.toHoldings = 0

			v := evaluateTransfer(in)
			s.Equal(tc.code, v.Code, tc.name)
		}
	})

	s.Run("zero limit means unconfigured", func() {
		in := s.baseTransfer()
		in.counters = Counters{Total: 10000}
		in.toHoldings = 0

		v := evaluateTransfer(in)
		s.True(v.OK())
	})
}

func (s *RuleChainSuite) TestTransferAccreditation() {
	s.Run("global accreditation flag", func() {
		in := s.baseTransfer()
		in.cfg.Flags[FlagForceAccredited] = true

		v := evaluateTransfer(in)
		s.Equal(CodeAccreditationRequired, v.Code)

		in.to.Accredited = true
		s.True(evaluateTransfer(in).OK())
	})

	s.Run("us-only flag ignores non-us destinations", func() {
		in := s.baseTransfer()
		in.cfg.Flags[FlagForceAccreditedUS] = true

		s.True(evaluateTransfer(in).OK())

		in.to = usInvestor("inv-to")
		v := evaluateTransfer(in)
		s.Equal(CodeUSAccreditationRequired, v.Code)
	})
}

func (s *RuleChainSuite) TestTransferFlowback() {
	cutoff := uint64(s.now.Add(24 * time.Hour).Unix())

	s.Run("foreign tokens may not re-enter the us before the cutoff", func() {
		in := s.baseTransfer()
		in.cfg.Rules[RuleBlockFlowbackEndTime] = cutoff
		in.from = euInvestor("inv-from")
		in.to = usInvestor("inv-to")
		in.toHoldings = 50

		v := evaluateTransfer(in)
		s.Equal(CodeFlowbackRestricted, v.Code)
	})

	s.Run("us to us is never flow-back", func() {
		in := s.baseTransfer()
		in.cfg.Rules[RuleBlockFlowbackEndTime] = cutoff
		in.from = usInvestor("inv-from")
		in.to = usInvestor("inv-to")

		s.True(evaluateTransfer(in).OK())
	})

	s.Run("after the cutoff the window is open", func() {
		in := s.baseTransfer()
		in.cfg.Rules[RuleBlockFlowbackEndTime] = uint64(s.now.Add(-time.Hour).Unix())
		in.from = euInvestor("inv-from")
		in.to = usInvestor("inv-to")

		s.True(evaluateTransfer(in).OK())
	})
}

func (s *RuleChainSuite) TestTransferInsufficientUnlocked() {
	in := s.baseTransfer()
	in.value = 1001
	in.transferable = 1000
	in.fromHoldings = 2000

	v := evaluateTransfer(in)
	s.Equal(CodeInsufficientUnlocked, v.Code)
}

// TestTransferRuleOrdering pins the documented priority: when several rules
// would reject, the lowest-numbered one wins.
func (s *RuleChainSuite) TestTransferRuleOrdering() {
	in := s.baseTransfer()
	// Violates rule 1 (forbidden region) and rule 8 (locked balance).
	in.to.Region = RegionForbidden
	in.value = 5000
	in.transferable = 0

	v := evaluateTransfer(in)
	s.Equal(CodeDestinationRestricted, v.Code)

	// With rule 1 satisfied, rule 8 surfaces.
	in.to.Region = RegionEU
	v = evaluateTransfer(in)
	s.Equal(CodeInsufficientUnlocked, v.Code)
}

// =============================================================================
// Issuance Rules
// =============================================================================

func (s *RuleChainSuite) TestIssuanceValid() {
	s.True(evaluateIssuance(s.baseIssuance()).OK())
}

func (s *RuleChainSuite) TestIssuanceDestinationChecks() {
	s.Run("forbidden region", func() {
		in := s.baseIssuance()
		in.to.Region = RegionForbidden
		s.Equal(CodeDestinationRestricted, evaluateIssuance(in).Code)
	})

	s.Run("unregistered destination", func() {
		in := s.baseIssuance()
		in.toFound = false
		in.to = InvestorFacts{}
		s.Equal(CodeWalletUnregistered, evaluateIssuance(in).Code)
	})

	s.Run("holder limit applies to first issuance", func() {
		in := s.baseIssuance()
		in.cfg.Rules[RuleTotalInvestorsLimit] = 1
		in.counters = Counters{Total: 1}
		s.Equal(CodeTotalInvestorsLimit, evaluateIssuance(in).Code)
	})
}

func (s *RuleChainSuite) TestIssuanceBackDating() {
	s.Run("back-dated issuance rejected when flag is on", func() {
		in := s.baseIssuance()
		in.cfg.Flags[FlagDisallowBackDating] = true
		in.issuanceTime = s.now.Add(-time.Hour)

		s.Equal(CodeBackDatingDisallowed, evaluateIssuance(in).Code)
	})

	s.Run("current-time issuance passes", func() {
		in := s.baseIssuance()
		in.cfg.Flags[FlagDisallowBackDating] = true
		in.issuanceTime = s.now

		s.True(evaluateIssuance(in).OK())
	})

	s.Run("zero issuance time is not back-dated", func() {
		in := s.baseIssuance()
		in.cfg.Flags[FlagDisallowBackDating] = true

		s.True(evaluateIssuance(in).OK())
	})

	s.Run("flag off allows back-dating", func() {
		in := s.baseIssuance()
		in.issuanceTime = s.now.Add(-time.Hour)

		s.True(evaluateIssuance(in).OK())
	})
}
