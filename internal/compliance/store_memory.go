package compliance

import (
	"context"
	"sync"
)

// InMemoryConfigStore keeps the configuration in memory.
type InMemoryConfigStore struct {
	mu  sync.RWMutex
	cfg *Config
}

func NewInMemoryConfigStore() *InMemoryConfigStore {
	return &InMemoryConfigStore{cfg: NewConfig()}
}

func (s *InMemoryConfigStore) Get(_ context.Context) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone(), nil
}

func (s *InMemoryConfigStore) Replace(_ context.Context, cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.Clone()
	return nil
}

// InMemoryCountersStore keeps holder counters in memory.
type InMemoryCountersStore struct {
	mu       sync.RWMutex
	counters Counters
}

func NewInMemoryCountersStore() *InMemoryCountersStore {
	return &InMemoryCountersStore{}
}

func (s *InMemoryCountersStore) Get(_ context.Context) (Counters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters, nil
}

func (s *InMemoryCountersStore) Adjust(_ context.Context, region Region, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(&s.counters.Total, delta)
	if p := s.counters.forRegion(region); p != nil {
		apply(p, delta)
	}
	return nil
}

func apply(v *uint64, delta int) {
	if delta >= 0 {
		*v += uint64(delta)
		return
	}
	dec := uint64(-delta)
	if *v < dec {
		*v = 0
		return
	}
	*v -= dec
}
