package relay

import (
	"context"
	"crypto/ed25519"
	"sync"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
)

// InMemoryKeyStore keeps relay keys in memory.
type InMemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[id.InvestorID]ed25519.PublicKey
}

func NewInMemoryKeyStore() *InMemoryKeyStore {
	return &InMemoryKeyStore{keys: make(map[id.InvestorID]ed25519.PublicKey)}
}

func (s *InMemoryKeyStore) Get(_ context.Context, investorID id.InvestorID) (ed25519.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[investorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := make(ed25519.PublicKey, len(key))
	copy(out, key)
	return out, nil
}

func (s *InMemoryKeyStore) Put(_ context.Context, investorID id.InvestorID, key ed25519.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make(ed25519.PublicKey, len(key))
	copy(stored, key)
	s.keys[investorID] = stored
	return nil
}

// InMemoryNonceStore keeps relay nonces in memory.
type InMemoryNonceStore struct {
	mu     sync.Mutex
	nonces map[id.InvestorID]uint64
}

func NewInMemoryNonceStore() *InMemoryNonceStore {
	return &InMemoryNonceStore{nonces: make(map[id.InvestorID]uint64)}
}

func (s *InMemoryNonceStore) Get(_ context.Context, investorID id.InvestorID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonces[investorID], nil
}

func (s *InMemoryNonceStore) Increment(_ context.Context, investorID id.InvestorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[investorID]++
	return nil
}
