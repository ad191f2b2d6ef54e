package compliance

import (
	"context"
	"log/slog"
	"strconv"

	"ledgergate/internal/audit"
	"ledgergate/internal/trust"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/requestcontext"
)

// Authorizer resolves the caller's role. Implemented by trust.Service.
type Authorizer interface {
	Require(ctx context.Context, allowed ...trust.Role) error
}

// ConfigService manages the compliance configuration vectors and the
// country classification table.
type ConfigService struct {
	store     ConfigStore
	authz     Authorizer
	logger    *slog.Logger
	publisher audit.Publisher
}

type ConfigOption func(*ConfigService)

func WithConfigLogger(logger *slog.Logger) ConfigOption {
	return func(s *ConfigService) { s.logger = logger }
}

func WithConfigAuditPublisher(publisher audit.Publisher) ConfigOption {
	return func(s *ConfigService) { s.publisher = publisher }
}

func NewConfigService(store ConfigStore, authz Authorizer, opts ...ConfigOption) *ConfigService {
	s := &ConfigService{store: store, authz: authz}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetAll replaces the entire rule and flag vectors atomically. One change
// event is emitted per field with its old and new value; re-notifying an
// unchanged field is acceptable and keeps the event stream aligned with
// the vector layout.
func (s *ConfigService) SetAll(ctx context.Context, rules []uint64, flags []bool) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}
	if len(rules) != NumRules {
		return dErrors.Newf(dErrors.CodeValidation, "expected %d rule values, got %d", NumRules, len(rules))
	}
	if len(flags) != NumFlags {
		return dErrors.Newf(dErrors.CodeValidation, "expected %d flag values, got %d", NumFlags, len(flags))
	}

	cfg, err := s.store.Get(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load compliance config")
	}
	old := cfg.Clone()
	copy(cfg.Rules[:], rules)
	copy(cfg.Flags[:], flags)

	if err := s.store.Replace(ctx, cfg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "replace compliance config")
	}

	for i := 0; i < NumRules; i++ {
		if err := s.emit(ctx, audit.Event{
			Action:   audit.ActionRuleChanged,
			Field:    RuleName(i),
			OldValue: strconv.FormatUint(old.Rules[i], 10),
			NewValue: strconv.FormatUint(cfg.Rules[i], 10),
		}); err != nil {
			return err
		}
	}
	for i := 0; i < NumFlags; i++ {
		if err := s.emit(ctx, audit.Event{
			Action:   audit.ActionFlagChanged,
			Field:    FlagName(i),
			OldValue: strconv.FormatBool(old.Flags[i]),
			NewValue: strconv.FormatBool(cfg.Flags[i]),
		}); err != nil {
			return err
		}
	}
	return nil
}

// SetCountryCompliance classifies a single country.
func (s *ConfigService) SetCountryCompliance(ctx context.Context, country string, region Region) error {
	return s.SetCountriesCompliance(ctx, []string{country}, []Region{region})
}

// SetCountriesCompliance classifies countries in bulk. Length mismatch
// rejects the call before any country is updated.
func (s *ConfigService) SetCountriesCompliance(ctx context.Context, countries []string, regions []Region) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}
	if len(countries) != len(regions) {
		return dErrors.New(dErrors.CodeValidation, "countries and regions length mismatch")
	}
	if len(countries) == 0 {
		return dErrors.New(dErrors.CodeValidation, "empty country classification")
	}
	for _, country := range countries {
		if country == "" {
			return dErrors.New(dErrors.CodeValidation, "country is required")
		}
	}

	cfg, err := s.store.Get(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load compliance config")
	}
	olds := make([]Region, len(countries))
	for i, country := range countries {
		olds[i] = cfg.Countries[country]
		cfg.Countries[country] = regions[i]
	}
	if err := s.store.Replace(ctx, cfg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "replace compliance config")
	}

	for i, country := range countries {
		if err := s.emit(ctx, audit.Event{
			Action:   audit.ActionCountryComplianceSet,
			Field:    country,
			OldValue: olds[i].String(),
			NewValue: regions[i].String(),
		}); err != nil {
			return err
		}
	}
	return nil
}

// SetDisallowBackDating toggles the back-dating flag without touching the
// rest of the vectors.
func (s *ConfigService) SetDisallowBackDating(ctx context.Context, disallow bool) error {
	if err := s.authz.Require(ctx, trust.RoleMaster, trust.RoleIssuer); err != nil {
		return err
	}
	cfg, err := s.store.Get(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load compliance config")
	}
	old := cfg.Flags[FlagDisallowBackDating]
	cfg.Flags[FlagDisallowBackDating] = disallow
	if err := s.store.Replace(ctx, cfg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "replace compliance config")
	}
	return s.emit(ctx, audit.Event{
		Action:   audit.ActionFlagChanged,
		Field:    FlagName(FlagDisallowBackDating),
		OldValue: strconv.FormatBool(old),
		NewValue: strconv.FormatBool(disallow),
	})
}

// GetAll returns the full configuration.
func (s *ConfigService) GetAll(ctx context.Context) (*Config, error) {
	cfg, err := s.store.Get(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load compliance config")
	}
	return cfg, nil
}

func (s *ConfigService) emit(ctx context.Context, event audit.Event) error {
	if s.publisher == nil {
		return nil
	}
	event.Actor = requestcontext.Caller(ctx)
	if err := s.publisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "emit compliance config event")
	}
	return nil
}
