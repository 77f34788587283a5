package cart

import (
	"errors"
	"sync"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Store holds one cart per owner. Owners are customer ids, guest ids, or
// order-bound ids; several carts coexist (one per open table) and switching
// the current owner never drops another owner's cart.
//
// The store is process-wide and purely in-memory: every operation is
// synchronous and total, and a missing owner reads as an empty cart.
type Store struct {
	mu      sync.RWMutex
	carts   map[string][]Item // owner -> items, insertion order
	current string
}

func NewStore() *Store {
	return &Store{carts: make(map[string][]Item)}
}

// SetCurrentOwner selects the owner that ReadCurrent targets.
func (s *Store) SetCurrentOwner(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = owner
}

// CurrentOwner returns the owner selected by SetCurrentOwner.
func (s *Store) CurrentOwner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Read returns the owner's items in insertion order. The returned slice is
// a copy; callers may mutate it freely.
func (s *Store) Read(owner string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]Item, len(s.carts[owner]))
	copy(items, s.carts[owner])
	return items
}

// ReadCurrent returns the current owner's items.
func (s *Store) ReadCurrent() []Item {
	s.mu.RLock()
	owner := s.current
	s.mu.RUnlock()
	return s.Read(owner)
}

// Upsert inserts or merges an item into the owner's cart.
//
// An item matching an existing line (same ProductID, or same local ID for
// lines without a product id) overwrites that line's quantity and price
// with the incoming values; quantities are set, not summed, since callers
// pass the already-computed new total. A merge resulting in a quantity of
// zero or less removes the line. A brand-new item must carry a quantity of
// at least one.
func (s *Store) Upsert(owner string, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[owner]
	idx := -1
	for i := range items {
		if item.ProductID != "" && items[i].ProductID == item.ProductID {
			idx = i
			break
		}
		if item.ProductID == "" && items[i].ID == item.ID {
			idx = i
			break
		}
	}

	if idx < 0 {
		if item.Quantity < 1 {
			return ErrInvalidQuantity
		}
		item.recalc()
		if s.carts == nil {
			s.carts = make(map[string][]Item)
		}
		s.carts[owner] = append(items, item)
		return nil
	}

	if item.Quantity <= 0 {
		s.carts[owner] = append(items[:idx], items[idx+1:]...)
		return nil
	}

	existing := items[idx]
	existing.Quantity = item.Quantity
	existing.UnitPrice = item.UnitPrice
	existing.Name = item.Name
	if item.LineID != "" {
		existing.LineID = item.LineID
	}
	existing.RemoteSubtotal = item.RemoteSubtotal
	if item.RemoteSubtotal {
		existing.Subtotal = item.Subtotal
	}
	existing.recalc()
	items[idx] = existing
	return nil
}

// Remove deletes an item by its local id. Removing an absent item is a
// no-op.
func (s *Store) Remove(owner, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[owner]
	for i := range items {
		if items[i].ID == itemID {
			s.carts[owner] = append(items[:i], items[i+1:]...)
			return
		}
	}
}

// Replace swaps the owner's cart for the given items verbatim. This is the
// path by which a remote refresh overwrites any stale optimistic state.
func (s *Store) Replace(owner string, items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := make([]Item, len(items))
	copy(replaced, items)
	s.carts[owner] = replaced
}

// Clear drops the owner's cart.
func (s *Store) Clear(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, owner)
}

// ClearAll drops every cart, e.g. on logout.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts = make(map[string][]Item)
	s.current = ""
}
