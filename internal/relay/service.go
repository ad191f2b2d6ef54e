package relay

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"

	"ledgergate/internal/audit"
	"ledgergate/internal/trust"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/sentinel"
	"ledgergate/pkg/requestcontext"
)

// Authorizer resolves the caller's role. Implemented by trust.Service.
type Authorizer interface {
	Require(ctx context.Context, allowed ...trust.Role) error
}

// WalletResolver lists an investor's wallets. Implemented by the investor
// registry.
type WalletResolver interface {
	WalletsOf(ctx context.Context, investorID id.InvestorID) ([]id.Address, error)
}

// Forwarder executes the relayed payload on behalf of the resolved
// caller. The transport layer implements it by dispatching the payload
// through the regular operation pipeline.
type Forwarder interface {
	Forward(ctx context.Context, destination id.Address, data []byte) error
}

// Service verifies signed meta-transactions and forwards them to the
// core with the investor's wallet as the acting caller. The per-investor
// nonce advances exactly once per successful relay; a failed forward
// leaves it untouched so the message can be retried.
type Service struct {
	keys      KeyStore
	nonces    NonceStore
	resolver  WalletResolver
	forwarder Forwarder
	authz     Authorizer
	gateway   id.Address

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

// New builds the relay. gateway is the only destination address relayed
// messages may target.
func New(keys KeyStore, nonces NonceStore, resolver WalletResolver, forwarder Forwarder, authz Authorizer, gateway id.Address, opts ...Option) *Service {
	s := &Service{
		keys:      keys,
		nonces:    nonces,
		resolver:  resolver,
		forwarder: forwarder,
		authz:     authz,
		gateway:   gateway,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterKey stores an investor's relay public key. Re-registration
// rotates the key.
func (s *Service) RegisterKey(ctx context.Context, investorID id.InvestorID, key ed25519.PublicKey) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}
	if investorID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "investor id is required")
	}
	if len(key) != ed25519.PublicKeySize {
		return dErrors.New(dErrors.CodeValidation, "relay key must be a 32-byte ed25519 public key")
	}
	if err := s.keys.Put(ctx, investorID, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "relay key store")
	}
	return s.emit(ctx, audit.Event{
		Action:   audit.ActionRelayKeyRegistered,
		Investor: investorID,
		NewValue: hex.EncodeToString(key),
	})
}

// Nonce returns the next expected nonce for an investor.
func (s *Service) Nonce(ctx context.Context, investorID id.InvestorID) (uint64, error) {
	nonce, err := s.nonces.Get(ctx, investorID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "relay nonce store")
	}
	return nonce, nil
}

// Execute verifies a signed request and forwards it. Checks run in a
// fixed order: destination, deadline, signature, then nonce, so a caller
// probing with a bad signature learns nothing about the stored nonce.
func (s *Service) Execute(ctx context.Context, req Request) error {
	if req.SenderInvestor.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "sender investor is required")
	}
	if len(req.Data) == 0 {
		return dErrors.New(dErrors.CodeValidation, "relay payload is required")
	}
	if req.Destination != s.gateway {
		return dErrors.New(dErrors.CodeValidation, "unknown relay destination")
	}
	now := requestcontext.Now(ctx)
	if req.BlockLimit < uint64(now.Unix()) {
		return dErrors.New(dErrors.CodeValidation, "relay message deadline has passed")
	}

	key, err := s.keys.Get(ctx, req.SenderInvestor)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "no relay key registered for investor")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "relay key store")
	}
	if !req.Verify(key) {
		return dErrors.New(dErrors.CodeUnauthorized, "relay signature verification failed")
	}

	expected, err := s.nonces.Get(ctx, req.SenderInvestor)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "relay nonce store")
	}
	if req.Nonce != expected {
		return dErrors.Newf(dErrors.CodeValidation, "relay nonce mismatch: expected %d", expected)
	}

	wallets, err := s.resolver.WalletsOf(ctx, req.SenderInvestor)
	if err != nil {
		return err
	}
	if len(wallets) == 0 {
		return dErrors.New(dErrors.CodeValidation, "investor has no bound wallet to act as")
	}

	ctx = requestcontext.WithCaller(ctx, wallets[0])
	if err := s.forwarder.Forward(ctx, req.Destination, req.Data); err != nil {
		return err
	}

	if err := s.nonces.Increment(ctx, req.SenderInvestor); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "relay nonce store")
	}
	return s.emit(ctx, audit.Event{
		Action:   audit.ActionRelayExecuted,
		Investor: req.SenderInvestor,
		Wallet:   wallets[0],
		NewValue: strconv.FormatUint(req.Nonce, 10),
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.publisher == nil {
		return nil
	}
	event.Actor = requestcontext.Caller(ctx)
	if err := s.publisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "emit relay event")
	}
	return nil
}
