package locks

import (
	"context"
	"sort"
	"sync"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
)

// InMemoryStore keeps lock state in memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.Address][]Record
	locked  map[id.InvestorID]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[id.Address][]Record),
		locked:  make(map[id.InvestorID]bool),
	}
}

func (s *InMemoryStore) Records(_ context.Context, wallet id.Address) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records[wallet]))
	copy(out, s.records[wallet])
	return out, nil
}

func (s *InMemoryStore) Append(_ context.Context, wallet id.Address, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[wallet] = append(s.records[wallet], rec)
	return nil
}

func (s *InMemoryStore) Remove(_ context.Context, wallet id.Address, index int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.records[wallet]
	if index < 0 || index >= len(list) {
		return Record{}, sentinel.ErrNotFound
	}
	removed := list[index]
	list[index] = list[len(list)-1]
	list = list[:len(list)-1]
	if len(list) == 0 {
		delete(s.records, wallet)
	} else {
		s.records[wallet] = list
	}
	return removed, nil
}

func (s *InMemoryStore) IsInvestorLocked(_ context.Context, investorID id.InvestorID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked[investorID], nil
}

func (s *InMemoryStore) SetInvestorLocked(_ context.Context, investorID id.InvestorID, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if locked {
		s.locked[investorID] = true
	} else {
		delete(s.locked, investorID)
	}
	return nil
}

func (s *InMemoryStore) Snapshot(_ context.Context) (map[id.Address][]Record, []id.InvestorID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make(map[id.Address][]Record, len(s.records))
	for wallet, list := range s.records {
		out := make([]Record, len(list))
		copy(out, list)
		records[wallet] = out
	}
	locked := make([]id.InvestorID, 0, len(s.locked))
	for investorID := range s.locked {
		locked = append(locked, investorID)
	}
	sort.Slice(locked, func(i, j int) bool { return locked[i] < locked[j] })
	return records, locked, nil
}
