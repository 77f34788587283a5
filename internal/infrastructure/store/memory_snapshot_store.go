package store

import (
	"context"
	"sync"
	"time"
)

// MemorySnapshotStore keeps ticket snapshots in process memory. This is
// the default backend; baselines are lost on restart, which costs at most
// one over-full ticket per open order.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*TicketSnapshot
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshots: make(map[string]*TicketSnapshot)}
}

func (s *MemorySnapshotStore) Get(ctx context.Context, owner string) (*TicketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[owner]
	if !ok {
		return nil, nil
	}
	copied := &TicketSnapshot{
		Owner:      snapshot.Owner,
		Quantities: make(map[string]int, len(snapshot.Quantities)),
		UpdatedAt:  snapshot.UpdatedAt,
	}
	for key, qty := range snapshot.Quantities {
		copied.Quantities[key] = qty
	}
	return copied, nil
}

func (s *MemorySnapshotStore) Save(ctx context.Context, snapshot *TicketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := &TicketSnapshot{
		Owner:      snapshot.Owner,
		Quantities: make(map[string]int, len(snapshot.Quantities)),
		UpdatedAt:  time.Now(),
	}
	for key, qty := range snapshot.Quantities {
		stored.Quantities[key] = qty
	}
	s.snapshots[snapshot.Owner] = stored
	return nil
}

func (s *MemorySnapshotStore) Delete(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, owner)
	return nil
}
