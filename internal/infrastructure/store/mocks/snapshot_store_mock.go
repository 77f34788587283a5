package mocks

import (
	"context"
	"sync"

	"github.com/example/pos-sync/internal/infrastructure/store"
)

// MockSnapshotStore is an in-memory SnapshotStore that records calls and
// supports per-method error injection.
type MockSnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string]*store.TicketSnapshot

	GetCalls    []string
	SaveCalls   []string
	DeleteCalls []string

	GetErr    error
	SaveErr   error
	DeleteErr error
}

func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{snapshots: make(map[string]*store.TicketSnapshot)}
}

func (m *MockSnapshotStore) Get(ctx context.Context, owner string) (*store.TicketSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls = append(m.GetCalls, owner)
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	snapshot, ok := m.snapshots[owner]
	if !ok {
		return nil, nil
	}
	copied := &store.TicketSnapshot{
		Owner:      snapshot.Owner,
		Quantities: make(map[string]int, len(snapshot.Quantities)),
		UpdatedAt:  snapshot.UpdatedAt,
	}
	for key, qty := range snapshot.Quantities {
		copied.Quantities[key] = qty
	}
	return copied, nil
}

func (m *MockSnapshotStore) Save(ctx context.Context, snapshot *store.TicketSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls = append(m.SaveCalls, snapshot.Owner)
	if m.SaveErr != nil {
		return m.SaveErr
	}
	copied := &store.TicketSnapshot{
		Owner:      snapshot.Owner,
		Quantities: make(map[string]int, len(snapshot.Quantities)),
		UpdatedAt:  snapshot.UpdatedAt,
	}
	for key, qty := range snapshot.Quantities {
		copied.Quantities[key] = qty
	}
	m.snapshots[snapshot.Owner] = copied
	return nil
}

func (m *MockSnapshotStore) Delete(ctx context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, owner)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.snapshots, owner)
	return nil
}

// Snapshot returns the stored snapshot for direct assertions.
func (m *MockSnapshotStore) Snapshot(owner string) (*store.TicketSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot, ok := m.snapshots[owner]
	return snapshot, ok
}
