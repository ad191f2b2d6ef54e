package compliance

import "context"

// ConfigStore persists the compliance configuration. Replace swaps the
// whole configuration atomically; there is no field-level write.
type ConfigStore interface {
	Get(ctx context.Context) (*Config, error)
	Replace(ctx context.Context, cfg *Config) error
}

// CountersStore persists committed holder counters. Adjust applies a
// delta of +1/-1 for the total and for one region counter atomically.
type CountersStore interface {
	Get(ctx context.Context) (Counters, error)
	Adjust(ctx context.Context, region Region, delta int) error
}
