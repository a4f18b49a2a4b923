package provision

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps grants in process memory. Used when Postgres is not configured.
type MemoryStore struct {
	mu     sync.RWMutex
	grants map[string]Grant
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{grants: make(map[string]Grant)}
}

func (m *MemoryStore) Save(_ context.Context, g Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[g.SubscriptionID] = g
	return nil
}

func (m *MemoryStore) Get(_ context.Context, subscriptionID string) (Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.grants[subscriptionID]
	if !ok {
		return Grant{}, ErrGrantNotFound
	}
	return g, nil
}

func (m *MemoryStore) ByCustomer(_ context.Context, customerID string) ([]Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Grant
	for _, g := range m.grants {
		if g.CustomerID == customerID {
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(a, b Grant) int {
		return b.GrantedAt.Compare(a.GrantedAt)
	})
	return out, nil
}

func (m *MemoryStore) Revoke(_ context.Context, subscriptionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[subscriptionID]
	if !ok {
		return ErrGrantNotFound
	}
	g.RevokedAt = &at
	m.grants[subscriptionID] = g
	return nil
}
