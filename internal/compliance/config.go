package compliance

// NumRules and NumFlags fix the configuration vector widths. SetAll
// replaces both vectors atomically; partial updates do not exist.
const (
	NumRules = 16
	NumFlags = 5
)

// Numeric rule indices. Zero means "not configured" for every limit.
const (
	RuleTotalInvestorsLimit = iota
	RuleUSInvestorsLimit
	RuleUSAccreditedInvestorsLimit
	RuleNonAccreditedInvestorsLimit
	RuleMaxUSInvestorsPercentage
	RuleBlockFlowbackEndTime
	RuleNonUSLockPeriod
	RuleMinimumTotalInvestors
	RuleMinimumHoldingsPerInvestor
	RuleMaximumHoldingsPerInvestor
	RuleEURetailInvestorsLimit
	RuleUSLockPeriod
	RuleJPInvestorsLimit
	RuleMinUSTokens
	RuleMinEUTokens
	RuleAuthorizedSecurities
)

// Boolean flag indices.
const (
	FlagForceFullTransfer = iota
	FlagForceAccredited
	FlagForceAccreditedUS
	FlagDisallowBackDating
	FlagWorldWideForceFullTransfer
)

var ruleNames = [NumRules]string{
	"total_investors_limit",
	"us_investors_limit",
	"us_accredited_investors_limit",
	"non_accredited_investors_limit",
	"max_us_investors_percentage",
	"block_flowback_end_time",
	"non_us_lock_period",
	"minimum_total_investors",
	"minimum_holdings_per_investor",
	"maximum_holdings_per_investor",
	"eu_retail_investors_limit",
	"us_lock_period",
	"jp_investors_limit",
	"min_us_tokens",
	"min_eu_tokens",
	"authorized_securities",
}

var flagNames = [NumFlags]string{
	"force_full_transfer",
	"force_accredited",
	"force_accredited_us",
	"disallow_back_dating",
	"worldwide_force_full_transfer",
}

// RuleName returns the stable name for a numeric rule index.
func RuleName(i int) string { return ruleNames[i] }

// FlagName returns the stable name for a boolean flag index.
func FlagName(i int) string { return flagNames[i] }

// Config is the full compliance configuration: the numeric rule vector,
// the boolean flag vector and the country classification table.
type Config struct {
	Rules     [NumRules]uint64
	Flags     [NumFlags]bool
	Countries map[string]Region
}

// NewConfig returns an empty configuration (no limits, no flags, every
// country classified RegionNone).
func NewConfig() *Config {
	return &Config{Countries: make(map[string]Region)}
}

// RegionOf classifies a country; unknown countries are RegionNone.
func (c *Config) RegionOf(country string) Region {
	return c.Countries[country]
}

// Clone deep-copies the configuration.
func (c *Config) Clone() *Config {
	out := &Config{
		Rules:     c.Rules,
		Flags:     c.Flags,
		Countries: make(map[string]Region, len(c.Countries)),
	}
	for k, v := range c.Countries {
		out.Countries[k] = v
	}
	return out
}

// Counters tracks committed holders of record, total and per region.
// They are adjusted by the ledger's commit hooks, never recomputed by
// scanning balances.
type Counters struct {
	Total uint64
	US    uint64
	EU    uint64
	JP    uint64
}

func (c *Counters) forRegion(region Region) *uint64 {
	switch region {
	case RegionUS:
		return &c.US
	case RegionEU:
		return &c.EU
	case RegionJP:
		return &c.JP
	default:
		return nil
	}
}

// Count returns the committed holder count for a region; RegionNone and
// RegionForbidden have no dedicated counter.
func (c *Counters) Count(region Region) uint64 {
	if p := c.forRegion(region); p != nil {
		return *p
	}
	return 0
}
