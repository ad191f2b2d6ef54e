package trust

import (
	"context"
	"sync"

	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/sentinel"
)

// InMemoryStore keeps role assignments in memory. The serialized core runs
// against this store; the mutex only guards against concurrent reads from
// the export endpoint.
type InMemoryStore struct {
	mu    sync.RWMutex
	roles map[id.Address]Role
	owner id.Address
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{roles: make(map[id.Address]Role)}
}

func (s *InMemoryStore) GetRole(_ context.Context, account id.Address) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if role, ok := s.roles[account]; ok {
		return role, nil
	}
	return RoleNone, sentinel.ErrNotFound
}

func (s *InMemoryStore) SetRole(_ context.Context, account id.Address, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role == RoleMaster {
		s.owner = account
	} else if s.owner == account {
		s.owner = ""
	}
	s.roles[account] = role
	return nil
}

func (s *InMemoryStore) RemoveRole(_ context.Context, account id.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[account]; !ok {
		return sentinel.ErrNotFound
	}
	if s.owner == account {
		s.owner = ""
	}
	delete(s.roles, account)
	return nil
}

func (s *InMemoryStore) Owner(_ context.Context) (id.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.owner.IsZero() {
		return "", sentinel.ErrNotFound
	}
	return s.owner, nil
}

func (s *InMemoryStore) Snapshot(_ context.Context) (map[id.Address]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.Address]Role, len(s.roles))
	for account, role := range s.roles {
		out[account] = role
	}
	return out, nil
}
