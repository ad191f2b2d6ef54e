package wallet

import (
	"context"
	"errors"
	"log/slog"

	"ledgergate/internal/audit"
	"ledgergate/internal/trust"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/sentinel"
	"ledgergate/pkg/requestcontext"
)

// MaxBatch caps a single bulk classification call.
const MaxBatch = 30

// Authorizer resolves the caller's role. Implemented by trust.Service.
type Authorizer interface {
	Require(ctx context.Context, allowed ...trust.Role) error
	RoleOf(ctx context.Context, account id.Address) (trust.Role, error)
}

// Service manages special wallet classifications.
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

// ClassifyIssuerWallet marks a wallet as an issuer treasury wallet.
func (s *Service) ClassifyIssuerWallet(ctx context.Context, wallet id.Address) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}
	return s.classify(ctx, &Record{Wallet: wallet, Classification: ClassIssuer})
}

// ClassifyPlatformWallet marks a wallet as a platform omnibus wallet.
func (s *Service) ClassifyPlatformWallet(ctx context.Context, wallet id.Address) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}
	return s.classify(ctx, &Record{Wallet: wallet, Classification: ClassPlatform})
}

// ClassifyExchangeWallet marks a wallet as operated by an EXCHANGE-role
// account. The owner must hold the EXCHANGE role at classification time.
func (s *Service) ClassifyExchangeWallet(ctx context.Context, wallet, owner id.Address) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer, trust.RoleExchange); err != nil {
		return err
	}
	if owner.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "exchange wallet owner is required")
	}
	role, err := s.authz.RoleOf(ctx, owner)
	if err != nil {
		return err
	}
	if role != trust.RoleExchange {
		return dErrors.New(dErrors.CodeValidation, "exchange wallet owner must hold the exchange role")
	}
	return s.classify(ctx, &Record{Wallet: wallet, Classification: ClassExchange, Owner: owner})
}

// ClassifyIssuerWallets is the capped bulk variant of ClassifyIssuerWallet:
// all-or-nothing over pre-validated wallets.
func (s *Service) ClassifyIssuerWallets(ctx context.Context, wallets []id.Address) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}
	if len(wallets) == 0 {
		return dErrors.New(dErrors.CodeValidation, "empty bulk classification")
	}
	if len(wallets) > MaxBatch {
		return dErrors.Newf(dErrors.CodeValidation, "bulk classification exceeds %d wallets", MaxBatch)
	}

	// Validate the whole batch before applying any of it.
	for _, wallet := range wallets {
		if wallet.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "wallet address is required")
		}
		if _, err := s.store.Get(ctx, wallet); err == nil {
			return dErrors.Newf(dErrors.CodeValidation, "wallet %s is already classified", wallet)
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "wallet store")
		}
	}
	for _, wallet := range wallets {
		if err := s.classify(ctx, &Record{Wallet: wallet, Classification: ClassIssuer}); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes a wallet's classification. A classified wallet must be
// cleared before it can be reclassified.
func (s *Service) Clear(ctx context.Context, wallet id.Address) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}
	rec, err := s.store.Get(ctx, wallet)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "wallet is not classified")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "wallet store")
	}
	if err := s.store.Delete(ctx, wallet); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "wallet store")
	}
	return s.emit(ctx, audit.Event{
		Action:   audit.ActionWalletUnclassified,
		Wallet:   wallet,
		OldValue: rec.Classification.String(),
		NewValue: ClassNone.String(),
	})
}

// ClassificationOf returns a wallet's classification; unclassified wallets
// read as ClassNone.
func (s *Service) ClassificationOf(ctx context.Context, wallet id.Address) (Classification, error) {
	rec, err := s.store.Get(ctx, wallet)
	if errors.Is(err, sentinel.ErrNotFound) {
		return ClassNone, nil
	}
	if err != nil {
		return ClassNone, dErrors.Wrap(err, dErrors.CodeInternal, "wallet store")
	}
	return rec.Classification, nil
}

// IsSpecial reports whether the wallet holds any non-NONE classification.
func (s *Service) IsSpecial(ctx context.Context, wallet id.Address) (bool, error) {
	class, err := s.ClassificationOf(ctx, wallet)
	if err != nil {
		return false, err
	}
	return class != ClassNone, nil
}

// OwnerOf returns the operating account of an exchange wallet.
func (s *Service) OwnerOf(ctx context.Context, wallet id.Address) (id.Address, error) {
	rec, err := s.store.Get(ctx, wallet)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "wallet is not classified")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "wallet store")
	}
	if rec.Classification != ClassExchange {
		return "", dErrors.New(dErrors.CodeValidation, "wallet is not an exchange wallet")
	}
	return rec.Owner, nil
}

func (s *Service) classify(ctx context.Context, rec *Record) error {
	if rec.Wallet.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "wallet address is required")
	}
	if err := s.store.Put(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeInvalidState, "wallet is already classified; clear it first")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "wallet store")
	}
	return s.emit(ctx, audit.Event{
		Action:   audit.ActionWalletClassified,
		Wallet:   rec.Wallet,
		OldValue: ClassNone.String(),
		NewValue: rec.Classification.String(),
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.publisher == nil {
		return nil
	}
	event.Actor = requestcontext.Caller(ctx)
	if err := s.publisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "emit wallet event")
	}
	return nil
}
