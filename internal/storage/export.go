// Package storage flattens every component's state into a deterministic,
// namespaced key-value view. Upgrade and migration tooling reads this
// view so the evaluation logic can be replaced without migrating data:
// keys are derived from component name, entity identifier and field name,
// never from storage internals.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"ledgergate/internal/compliance"
	"ledgergate/internal/investor"
	"ledgergate/internal/ledger"
	"ledgergate/internal/locks"
	"ledgergate/internal/trust"
	"ledgergate/internal/wallet"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

// TrustSnapshotter exposes the role map.
type TrustSnapshotter interface {
	Snapshot(ctx context.Context) (map[id.Address]trust.Role, error)
}

// InvestorSnapshotter exposes all investor records.
type InvestorSnapshotter interface {
	Snapshot(ctx context.Context) ([]*investor.Investor, error)
}

// WalletSnapshotter exposes all wallet classifications.
type WalletSnapshotter interface {
	Snapshot(ctx context.Context) ([]*wallet.Record, error)
}

// LockSnapshotter exposes all lock records and locked investors.
type LockSnapshotter interface {
	Snapshot(ctx context.Context) (map[id.Address][]locks.Record, []id.InvestorID, error)
}

// LedgerSnapshotter exposes all balances and the aggregate totals.
type LedgerSnapshotter interface {
	Snapshot(ctx context.Context) (map[id.Address]uint64, ledger.Totals, error)
}

// Exporter builds the flat export from the component stores.
type Exporter struct {
	trust     TrustSnapshotter
	investors InvestorSnapshotter
	config    compliance.ConfigStore
	counters  compliance.CountersStore
	wallets   WalletSnapshotter
	locks     LockSnapshotter
	ledger    LedgerSnapshotter
}

func NewExporter(
	trustStore TrustSnapshotter,
	investors InvestorSnapshotter,
	config compliance.ConfigStore,
	counters compliance.CountersStore,
	wallets WalletSnapshotter,
	lockStore LockSnapshotter,
	ledgerStore LedgerSnapshotter,
) *Exporter {
	return &Exporter{
		trust:     trustStore,
		investors: investors,
		config:    config,
		counters:  counters,
		wallets:   wallets,
		locks:     lockStore,
		ledger:    ledgerStore,
	}
}

// Entry is one exported key-value pair.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Export flattens all component state. Entries are sorted by key so two
// exports of the same state are byte-identical.
func (e *Exporter) Export(ctx context.Context) ([]Entry, error) {
	kv := map[string]string{}

	if err := e.exportTrust(ctx, kv); err != nil {
		return nil, err
	}
	if err := e.exportInvestors(ctx, kv); err != nil {
		return nil, err
	}
	if err := e.exportConfig(ctx, kv); err != nil {
		return nil, err
	}
	if err := e.exportWallets(ctx, kv); err != nil {
		return nil, err
	}
	if err := e.exportLocks(ctx, kv); err != nil {
		return nil, err
	}
	if err := e.exportLedger(ctx, kv); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry{Key: k, Value: kv[k]})
	}
	return out, nil
}

func (e *Exporter) exportTrust(ctx context.Context, kv map[string]string) error {
	roles, err := e.trust.Snapshot(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "export trust registry")
	}
	for account, role := range roles {
		kv[key("trust", account.String(), "role")] = role.String()
	}
	return nil
}

func (e *Exporter) exportInvestors(ctx context.Context, kv map[string]string) error {
	investors, err := e.investors.Snapshot(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "export investor registry")
	}
	for _, inv := range investors {
		entity := inv.ID.String()
		kv[key("investor", entity, "country")] = inv.Country
		kv[key("investor", entity, "collision_hash")] = inv.CollisionHash
		for typ, attr := range inv.Attributes {
			field := "attribute." + string(typ)
			kv[key("investor", entity, field+".value")] = strconv.Itoa(int(attr.Value))
			kv[key("investor", entity, field+".expiry")] = formatTime(attr.Expiry)
			kv[key("investor", entity, field+".proof")] = attr.ProofHash
		}
		for i, w := range inv.Wallets {
			kv[key("investor", entity, fmt.Sprintf("wallet.%d", i))] = w.String()
		}
	}
	return nil
}

func (e *Exporter) exportConfig(ctx context.Context, kv map[string]string) error {
	cfg, err := e.config.Get(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "export compliance config")
	}
	for i, v := range cfg.Rules {
		kv[key("compliance", "rules", compliance.RuleName(i))] = strconv.FormatUint(v, 10)
	}
	for i, v := range cfg.Flags {
		kv[key("compliance", "flags", compliance.FlagName(i))] = strconv.FormatBool(v)
	}
	for country, region := range cfg.Countries {
		kv[key("compliance", "countries", country)] = region.String()
	}

	counters, err := e.counters.Get(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "export holder counters")
	}
	kv[key("compliance", "counters", "total")] = strconv.FormatUint(counters.Total, 10)
	kv[key("compliance", "counters", "us")] = strconv.FormatUint(counters.US, 10)
	kv[key("compliance", "counters", "eu")] = strconv.FormatUint(counters.EU, 10)
	kv[key("compliance", "counters", "jp")] = strconv.FormatUint(counters.JP, 10)
	return nil
}

func (e *Exporter) exportWallets(ctx context.Context, kv map[string]string) error {
	records, err := e.wallets.Snapshot(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "export wallet classifications")
	}
	for _, rec := range records {
		kv[key("wallet", rec.Wallet.String(), "classification")] = rec.Classification.String()
		if !rec.Owner.IsZero() {
			kv[key("wallet", rec.Wallet.String(), "owner")] = rec.Owner.String()
		}
	}
	return nil
}

func (e *Exporter) exportLocks(ctx context.Context, kv map[string]string) error {
	records, locked, err := e.locks.Snapshot(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "export lock manager")
	}
	for w, list := range records {
		for i, rec := range list {
			field := fmt.Sprintf("lock.%d", i)
			kv[key("locks", w.String(), field+".value")] = strconv.FormatUint(rec.Value, 10)
			kv[key("locks", w.String(), field+".reason_code")] = strconv.FormatUint(rec.ReasonCode, 10)
			kv[key("locks", w.String(), field+".reason")] = rec.Reason
			kv[key("locks", w.String(), field+".release_time")] = formatTime(rec.ReleaseTime)
		}
	}
	for _, investorID := range locked {
		kv[key("locks", investorID.String(), "fully_locked")] = "true"
	}
	return nil
}

func (e *Exporter) exportLedger(ctx context.Context, kv map[string]string) error {
	balances, totals, err := e.ledger.Snapshot(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "export ledger")
	}
	for w, balance := range balances {
		kv[key("ledger", w.String(), "balance")] = strconv.FormatUint(balance, 10)
	}
	kv[key("ledger", "totals", "supply")] = strconv.FormatUint(totals.Supply, 10)
	kv[key("ledger", "totals", "issued")] = strconv.FormatUint(totals.Issued, 10)
	if totals.CapSet {
		kv[key("ledger", "totals", "cap")] = strconv.FormatUint(totals.Cap, 10)
	}
	return nil
}

func key(component, entity, field string) string {
	return component + "/" + entity + "/" + field
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
