package wallet

import (
	"context"
	"sort"
	"sync"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
)

// InMemoryStore keeps wallet classifications in memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.Address]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.Address]*Record)}
}

func (s *InMemoryStore) Get(_ context.Context, wallet id.Address) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[wallet]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *InMemoryStore) Put(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Wallet]; ok {
		return sentinel.ErrConflict
	}
	clone := *rec
	s.records[rec.Wallet] = &clone
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, wallet id.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[wallet]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, wallet)
	return nil
}

func (s *InMemoryStore) Snapshot(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		clone := *rec
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Wallet.String() < out[j].Wallet.String() })
	return out, nil
}
