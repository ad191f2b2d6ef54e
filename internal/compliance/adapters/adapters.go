// Package adapters bridges the concrete registries into the compliance
// engine's ports. The engine stays decoupled from the service packages;
// main wires these adapters in.
package adapters

import (
	"context"
	"time"

	"ledgergate/internal/compliance"
	"ledgergate/internal/investor"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/requestcontext"
)

// InvestorFacts resolves wallets to the investor facts the rule engine
// consumes: region from the country table and the identity attributes
// effective at the operation's execution time.
type InvestorFacts struct {
	investors *investor.Service
	config    compliance.ConfigStore
}

func NewInvestorFacts(investors *investor.Service, config compliance.ConfigStore) *InvestorFacts {
	return &InvestorFacts{investors: investors, config: config}
}

func (a *InvestorFacts) FactsByWallet(ctx context.Context, wallet id.Address) (compliance.InvestorFacts, bool, error) {
	inv, err := a.investors.GetInvestor(ctx, wallet)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return compliance.InvestorFacts{}, false, nil
		}
		return compliance.InvestorFacts{}, false, err
	}

	cfg, err := a.config.Get(ctx)
	if err != nil {
		return compliance.InvestorFacts{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "load compliance config")
	}

	now := requestcontext.Now(ctx)
	return compliance.InvestorFacts{
		ID:                inv.ID,
		Country:           inv.Country,
		Region:            cfg.RegionOf(inv.Country),
		Accredited:        approved(inv, investor.AttributeAccredited, now),
		ForceFullTransfer: approved(inv, investor.AttributeForceFullTransfer, now),
	}, true, nil
}

func approved(inv *investor.Investor, typ investor.AttributeType, now time.Time) bool {
	return inv.Attributes[typ].EffectiveValue(now) == investor.AttributeApproved
}

// IssuanceLockPolicy derives the configured lock-period release time for
// newly issued tokens: US investors use the US lock period, everyone else
// the non-US one. A zero period means no issuance lock.
type IssuanceLockPolicy struct {
	facts  *InvestorFacts
	config compliance.ConfigStore
}

func NewIssuanceLockPolicy(facts *InvestorFacts, config compliance.ConfigStore) *IssuanceLockPolicy {
	return &IssuanceLockPolicy{facts: facts, config: config}
}

func (p *IssuanceLockPolicy) IssuanceLock(ctx context.Context, wallet id.Address, issuanceTime time.Time) (time.Time, bool, error) {
	facts, found, err := p.facts.FactsByWallet(ctx, wallet)
	if err != nil {
		return time.Time{}, false, err
	}
	if !found {
		return time.Time{}, false, nil
	}

	cfg, err := p.config.Get(ctx)
	if err != nil {
		return time.Time{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "load compliance config")
	}

	var period uint64
	if facts.Region == compliance.RegionUS {
		period = cfg.Rules[compliance.RuleUSLockPeriod]
	} else {
		period = cfg.Rules[compliance.RuleNonUSLockPeriod]
	}
	if period == 0 {
		return time.Time{}, false, nil
	}
	return issuanceTime.Add(time.Duration(period) * time.Second), true, nil
}
