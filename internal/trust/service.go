package trust

import (
	"context"
	"errors"
	"log/slog"

	"ledgergate/internal/audit"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/sentinel"
	"ledgergate/pkg/requestcontext"
)

// MaxBulkRoles caps a single bulk role assignment call.
const MaxBulkRoles = 50

// Service is the role-based trust registry. Every mutating entry point in
// the system resolves its caller's role here before touching state.
type Service struct {
	store     Store
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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap grants MASTER to the configured account on first boot. A no-op
// when an owner already exists; it never reassigns ownership.
func (s *Service) Bootstrap(ctx context.Context, master id.Address) error {
	if master.IsZero() {
		return nil
	}
	if _, err := s.store.Owner(ctx); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "resolve owner")
	}
	if err := s.store.SetRole(ctx, master, RoleMaster); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "bootstrap master role")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "master role bootstrapped", "account", master)
	}
	return nil
}

// RoleOf resolves an account's role; unassigned accounts are RoleNone.
func (s *Service) RoleOf(ctx context.Context, account id.Address) (Role, error) {
	role, err := s.store.GetRole(ctx, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return RoleNone, nil
		}
		return RoleNone, dErrors.Wrap(err, dErrors.CodeInternal, "resolve role")
	}
	return role, nil
}

// Require resolves the caller from context and checks membership in the
// allowed set. All services use this as their authorization gate.
func (s *Service) Require(ctx context.Context, allowed ...Role) error {
	caller := requestcontext.Caller(ctx)
	role, err := s.RoleOf(ctx, caller)
	if err != nil {
		return err
	}
	for _, a := range allowed {
		if role == a {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeUnauthorized, "caller role %s is not permitted", role)
}

// SetOwner transfers MASTER from the caller to newOwner, atomically
// revoking it from the caller. Only the current MASTER may call this.
func (s *Service) SetOwner(ctx context.Context, newOwner id.Address) error {
	caller := requestcontext.Caller(ctx)
	if err := s.Require(ctx, RoleMaster); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "new owner address is required")
	}
	if newOwner == caller {
		return dErrors.New(dErrors.CodeValidation, "new owner must differ from current owner")
	}

	if err := s.store.RemoveRole(ctx, caller); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revoke master role")
	}
	if err := s.store.SetRole(ctx, newOwner, RoleMaster); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "grant master role")
	}

	if err := s.emit(ctx, audit.ActionRoleRemoved, caller, RoleMaster); err != nil {
		return err
	}
	return s.emit(ctx, audit.ActionRoleAdded, newOwner, RoleMaster)
}

// SetRole assigns role to account. MASTER may assign ISSUER, EXCHANGE and
// TRANSFER_AGENT; ISSUER may assign ISSUER and EXCHANGE. MASTER and NONE
// are never valid targets here (use SetOwner / RemoveRole).
func (s *Service) SetRole(ctx context.Context, account id.Address, role Role) error {
	if err := s.validateAssignment(ctx, account, role); err != nil {
		return err
	}
	if err := s.store.SetRole(ctx, account, role); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "set role")
	}
	return s.emit(ctx, audit.ActionRoleAdded, account, role)
}

// SetRoles is the bulk variant of SetRole: length-matched, capped at
// MaxBulkRoles, and all-or-nothing. Every assignment is validated before
// any is applied.
func (s *Service) SetRoles(ctx context.Context, accounts []id.Address, roles []Role) error {
	if len(accounts) != len(roles) {
		return dErrors.New(dErrors.CodeValidation, "accounts and roles length mismatch")
	}
	if len(accounts) == 0 {
		return dErrors.New(dErrors.CodeValidation, "empty bulk role assignment")
	}
	if len(accounts) > MaxBulkRoles {
		return dErrors.Newf(dErrors.CodeValidation, "bulk role assignment exceeds %d accounts", MaxBulkRoles)
	}

	for i := range accounts {
		if err := s.validateAssignment(ctx, accounts[i], roles[i]); err != nil {
			return err
		}
	}
	for i := range accounts {
		if err := s.store.SetRole(ctx, accounts[i], roles[i]); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "set role")
		}
		if err := s.emit(ctx, audit.ActionRoleAdded, accounts[i], roles[i]); err != nil {
			return err
		}
	}
	return nil
}

// RemoveRole clears an account's role. The caller must be MASTER or hold a
// role that dominates the target's.
func (s *Service) RemoveRole(ctx context.Context, account id.Address) error {
	caller := requestcontext.Caller(ctx)
	callerRole, err := s.RoleOf(ctx, caller)
	if err != nil {
		return err
	}
	target, err := s.RoleOf(ctx, account)
	if err != nil {
		return err
	}
	if target == RoleNone {
		return dErrors.New(dErrors.CodeNotFound, "account holds no role")
	}
	if target == RoleMaster {
		return dErrors.New(dErrors.CodeValidation, "master role is transferred via owner change, not removal")
	}
	if callerRole != RoleMaster && !callerRole.Dominates(target) {
		return dErrors.Newf(dErrors.CodeUnauthorized, "caller role %s cannot remove %s", callerRole, target)
	}

	if err := s.store.RemoveRole(ctx, account); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "remove role")
	}
	return s.emit(ctx, audit.ActionRoleRemoved, account, target)
}

// GetRole is the read entry point used by external callers.
func (s *Service) GetRole(ctx context.Context, account id.Address) (Role, error) {
	return s.RoleOf(ctx, account)
}

func (s *Service) validateAssignment(ctx context.Context, account id.Address, role Role) error {
	if account.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "account address is required")
	}
	if role == RoleMaster || role == RoleNone {
		return dErrors.Newf(dErrors.CodeValidation, "%s is not an assignable role", role)
	}

	caller := requestcontext.Caller(ctx)
	callerRole, err := s.RoleOf(ctx, caller)
	if err != nil {
		return err
	}
	switch callerRole {
	case RoleMaster:
		return nil
	case RoleIssuer:
		if role == RoleIssuer || role == RoleExchange {
			return nil
		}
		return dErrors.Newf(dErrors.CodeUnauthorized, "issuer cannot assign %s", role)
	default:
		return dErrors.Newf(dErrors.CodeUnauthorized, "caller role %s cannot assign roles", callerRole)
	}
}

func (s *Service) emit(ctx context.Context, action audit.Action, account id.Address, role Role) error {
	if s.publisher == nil {
		return nil
	}
	err := s.publisher.Emit(ctx, audit.Event{
		Action:   action,
		Actor:    requestcontext.Caller(ctx),
		Wallet:   account,
		NewValue: role.String(),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "emit role event")
	}
	return nil
}
