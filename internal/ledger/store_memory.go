package ledger

import (
	"context"
	"fmt"
	"sync"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
)

// InMemoryStore keeps ledger state in memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	balances map[id.Address]uint64
	totals   Totals
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{balances: make(map[id.Address]uint64)}
}

func (s *InMemoryStore) BalanceOf(_ context.Context, wallet id.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[wallet], nil
}

func (s *InMemoryStore) Totals(_ context.Context) (Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals, nil
}

func (s *InMemoryStore) SetCap(_ context.Context, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totals.CapSet {
		return sentinel.ErrConflict
	}
	s.totals.Cap = value
	s.totals.CapSet = true
	return nil
}

func (s *InMemoryStore) Issue(_ context.Context, wallet id.Address, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[wallet] += value
	s.totals.Supply += value
	s.totals.Issued += value
	return nil
}

func (s *InMemoryStore) Move(_ context.Context, from, to id.Address, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[from] < value {
		return fmt.Errorf("move %d from %s: balance %d", value, from, s.balances[from])
	}
	s.debit(from, value)
	s.balances[to] += value
	return nil
}

func (s *InMemoryStore) Burn(_ context.Context, wallet id.Address, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[wallet] < value {
		return fmt.Errorf("burn %d from %s: balance %d", value, wallet, s.balances[wallet])
	}
	s.debit(wallet, value)
	s.totals.Supply -= value
	return nil
}

func (s *InMemoryStore) Snapshot(_ context.Context) (map[id.Address]uint64, Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balances := make(map[id.Address]uint64, len(s.balances))
	for wallet, balance := range s.balances {
		balances[wallet] = balance
	}
	return balances, s.totals, nil
}

func (s *InMemoryStore) debit(wallet id.Address, value uint64) {
	remaining := s.balances[wallet] - value
	if remaining == 0 {
		delete(s.balances, wallet)
	} else {
		s.balances[wallet] = remaining
	}
}
