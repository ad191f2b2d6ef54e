package investor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ledgergate/internal/audit"
	"ledgergate/internal/compliance"
	"ledgergate/internal/trust"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/sentinel"
	"ledgergate/pkg/requestcontext"
)

// MaxBulkWallets caps a single bulk wallet binding call.
const MaxBulkWallets = 30

// Authorizer resolves the caller's role. Implemented by trust.Service.
type Authorizer interface {
	Require(ctx context.Context, allowed ...trust.Role) error
}

// Service is the investor identity registry.
type Service struct {
	store     Store
	authz     Authorizer
	logger    *slog.Logger
	publisher audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func New(store Store, authz Authorizer, opts ...Option) *Service {
	s := &Service{store: store, authz: authz}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new investor record. Only MASTER and ISSUER may
// register. The collision hash guards against re-registering the same
// natural person under a second ID.
func (s *Service) Register(ctx context.Context, investorID id.InvestorID, collisionHash string) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}
	if investorID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "investor id is required")
	}

	err := s.store.Create(ctx, &Investor{
		ID:            investorID,
		CollisionHash: collisionHash,
		Attributes:    make(map[AttributeType]Attribute),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeValidation, "investor id or collision hash already registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "register investor")
	}

	return s.emit(ctx, audit.Event{
		Action:   audit.ActionInvestorAdded,
		Investor: investorID,
	})
}

// SetCountry updates an investor's country of residence.
func (s *Service) SetCountry(ctx context.Context, investorID id.InvestorID, country string) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer, trust.RoleExchange); err != nil {
		return err
	}
	if country == "" {
		return dErrors.New(dErrors.CodeValidation, "country is required")
	}

	var old string
	_, err := s.store.Execute(ctx, investorID,
		func(inv *Investor) error {
			old = inv.Country
			return nil
		},
		func(inv *Investor) {
			inv.Country = country
		},
	)
	if err != nil {
		return s.wrapStoreErr(err)
	}

	return s.emit(ctx, audit.Event{
		Action:   audit.ActionInvestorCountryChanged,
		Investor: investorID,
		Field:    "country",
		OldValue: old,
		NewValue: country,
	})
}

// AddWallet binds a wallet to an investor. Binding the same wallet to the
// same investor twice is an idempotent success; binding it to a different
// investor fails with the wallet-ownership compliance code.
func (s *Service) AddWallet(ctx context.Context, wallet id.Address, investorID id.InvestorID) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer, trust.RoleExchange); err != nil {
		return err
	}
	if wallet.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "wallet address is required")
	}

	if err := s.store.BindWallet(ctx, wallet, investorID); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.NewCompliance(compliance.CodeWalletOwnershipConflict,
				compliance.MessageFor(compliance.CodeWalletOwnershipConflict))
		}
		return s.wrapStoreErr(err)
	}

	return s.emit(ctx, audit.Event{
		Action:   audit.ActionInvestorWalletAdded,
		Investor: investorID,
		Wallet:   wallet,
	})
}

// AddWallets is the capped bulk variant of AddWallet: all-or-nothing over
// pre-validated pairs.
func (s *Service) AddWallets(ctx context.Context, wallets []id.Address, investorIDs []id.InvestorID) error {
	if len(wallets) != len(investorIDs) {
		return dErrors.New(dErrors.CodeValidation, "wallets and investors length mismatch")
	}
	if len(wallets) == 0 {
		return dErrors.New(dErrors.CodeValidation, "empty bulk wallet binding")
	}
	if len(wallets) > MaxBulkWallets {
		return dErrors.Newf(dErrors.CodeValidation, "bulk wallet binding exceeds %d wallets", MaxBulkWallets)
	}
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer, trust.RoleExchange); err != nil {
		return err
	}

	// Validate every binding before applying any: a wallet bound to a
	// different investor anywhere in the batch rejects the whole call.
	for i := range wallets {
		existing, err := s.store.FindByWallet(ctx, wallets[i])
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return s.wrapStoreErr(err)
		}
		if existing != nil && existing.ID != investorIDs[i] {
			return dErrors.NewCompliance(compliance.CodeWalletOwnershipConflict,
				compliance.MessageFor(compliance.CodeWalletOwnershipConflict))
		}
		if _, err := s.store.FindByID(ctx, investorIDs[i]); err != nil {
			return s.wrapStoreErr(err)
		}
	}
	for i := range wallets {
		if err := s.AddWallet(ctx, wallets[i], investorIDs[i]); err != nil {
			return err
		}
	}
	return nil
}

// SetAttribute records an identity attribute with its expiration and an
// off-ledger proof reference.
func (s *Service) SetAttribute(ctx context.Context, investorID id.InvestorID, typ AttributeType, value AttributeValue, expiry time.Time, proofHash string) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer, trust.RoleExchange); err != nil {
		return err
	}
	if _, ok := ParseAttributeType(string(typ)); !ok {
		return dErrors.Newf(dErrors.CodeValidation, "unknown attribute type %q", typ)
	}

	var old AttributeValue
	_, err := s.store.Execute(ctx, investorID,
		func(inv *Investor) error {
			old = inv.Attributes[typ].Value
			return nil
		},
		func(inv *Investor) {
			inv.Attributes[typ] = Attribute{Value: value, Expiry: expiry, ProofHash: proofHash}
		},
	)
	if err != nil {
		return s.wrapStoreErr(err)
	}

	return s.emit(ctx, audit.Event{
		Action:   audit.ActionInvestorAttributeSet,
		Investor: investorID,
		Field:    string(typ),
		OldValue: attributeValueName(old),
		NewValue: attributeValueName(value),
	})
}

// GetInvestor resolves the investor bound to a wallet.
func (s *Service) GetInvestor(ctx context.Context, wallet id.Address) (*Investor, error) {
	inv, err := s.store.FindByWallet(ctx, wallet)
	if err != nil {
		return nil, s.wrapStoreErr(err)
	}
	return inv, nil
}

// InvestorOf resolves a wallet to its investor ID. Unbound wallets are
// reported through the boolean, not an error, because most callers treat
// them as special or unregistered rather than missing.
func (s *Service) InvestorOf(ctx context.Context, wallet id.Address) (id.InvestorID, bool, error) {
	inv, err := s.store.FindByWallet(ctx, wallet)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", false, nil
		}
		return "", false, s.wrapStoreErr(err)
	}
	return inv.ID, true, nil
}

// WalletsOf lists every wallet bound to an investor.
func (s *Service) WalletsOf(ctx context.Context, investorID id.InvestorID) ([]id.Address, error) {
	inv, err := s.store.FindByID(ctx, investorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, s.wrapStoreErr(err)
	}
	return inv.Wallets, nil
}

// GetCountry returns an investor's registered country.
func (s *Service) GetCountry(ctx context.Context, investorID id.InvestorID) (string, error) {
	inv, err := s.store.FindByID(ctx, investorID)
	if err != nil {
		return "", s.wrapStoreErr(err)
	}
	return inv.Country, nil
}

// GetAttributeValue returns the effective attribute value at the
// operation's execution time: expired attributes read as AttributeNone.
func (s *Service) GetAttributeValue(ctx context.Context, investorID id.InvestorID, typ AttributeType) (AttributeValue, error) {
	inv, err := s.store.FindByID(ctx, investorID)
	if err != nil {
		return AttributeNone, s.wrapStoreErr(err)
	}
	return inv.Attributes[typ].EffectiveValue(requestcontext.Now(ctx)), nil
}

func (s *Service) wrapStoreErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "investor not found")
	}
	if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeCompliance) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "investor store")
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.publisher == nil {
		return nil
	}
	event.Actor = requestcontext.Caller(ctx)
	if err := s.publisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "emit investor event")
	}
	return nil
}

func attributeValueName(v AttributeValue) string {
	switch v {
	case AttributePending:
		return "pending"
	case AttributeApproved:
		return "approved"
	case AttributeRejected:
		return "rejected"
	default:
		return "none"
	}
}
