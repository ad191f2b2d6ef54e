package investor

import (
	"context"
	"sort"
	"sync"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
)

// InMemoryStore keeps investor records and the wallet reverse index in
// memory, mirroring the layout the postgres store persists.
type InMemoryStore struct {
	mu        sync.RWMutex
	investors map[id.InvestorID]*Investor
	byWallet  map[id.Address]id.InvestorID
	byHash    map[string]id.InvestorID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		investors: make(map[id.InvestorID]*Investor),
		byWallet:  make(map[id.Address]id.InvestorID),
		byHash:    make(map[string]id.InvestorID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, inv *Investor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.investors[inv.ID]; ok {
		return sentinel.ErrConflict
	}
	if inv.CollisionHash != "" {
		if _, ok := s.byHash[inv.CollisionHash]; ok {
			return sentinel.ErrConflict
		}
		s.byHash[inv.CollisionHash] = inv.ID
	}
	s.investors[inv.ID] = cloneInvestor(inv)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, investorID id.InvestorID) (*Investor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.investors[investorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneInvestor(inv), nil
}

func (s *InMemoryStore) FindByWallet(_ context.Context, wallet id.Address) (*Investor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	investorID, ok := s.byWallet[wallet]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneInvestor(s.investors[investorID]), nil
}

func (s *InMemoryStore) Execute(_ context.Context, investorID id.InvestorID, validate func(*Investor) error, mutate func(*Investor)) (*Investor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.investors[investorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(inv); err != nil {
		return nil, err
	}
	mutate(inv)
	return cloneInvestor(inv), nil
}

func (s *InMemoryStore) BindWallet(_ context.Context, wallet id.Address, investorID id.InvestorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bound, ok := s.byWallet[wallet]; ok && bound != investorID {
		return sentinel.ErrConflict
	}
	inv, ok := s.investors[investorID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !inv.HasWallet(wallet) {
		inv.Wallets = append(inv.Wallets, wallet)
	}
	s.byWallet[wallet] = investorID
	return nil
}

func (s *InMemoryStore) Snapshot(_ context.Context) ([]*Investor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Investor, 0, len(s.investors))
	for _, inv := range s.investors {
		out = append(out, cloneInvestor(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneInvestor(inv *Investor) *Investor {
	out := &Investor{
		ID:            inv.ID,
		Country:       inv.Country,
		CollisionHash: inv.CollisionHash,
		Attributes:    make(map[AttributeType]Attribute, len(inv.Attributes)),
		Wallets:       append([]id.Address{}, inv.Wallets...),
	}
	for k, v := range inv.Attributes {
		out.Attributes[k] = v
	}
	return out
}
