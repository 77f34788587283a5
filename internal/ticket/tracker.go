// Package ticket computes incremental kitchen tickets: which lines of an
// order have not yet been sent to the kitchen since the last print.
package ticket

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/pos-sync/internal/cart"
	"github.com/example/pos-sync/internal/infrastructure/store"
)

// Line is one kitchen ticket line. Quantity is the amount to print, which
// for a delta ticket is the increase since the last committed print, not
// the full current quantity.
type Line struct {
	Key       string `json:"key"`
	ProductID string `json:"product_id,omitempty"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// ItemKey derives the stable key identifying a kitchen line across
// renames and price edits: the remote product id when known, else the
// remote line id, else the normalized display name.
func ItemKey(item cart.Item) string {
	if item.ProductID != "" {
		return "product:" + item.ProductID
	}
	if item.LineID != "" {
		return "line:" + item.LineID
	}
	name := strings.ToLower(strings.Join(strings.Fields(item.Name), " "))
	return "name:" + name
}

// Tracker maintains, per owner, the quantities already included in a
// previously emitted kitchen ticket, and computes the lines for the next
// one. Snapshot persistence is pluggable; the default backend is
// in-memory.
type Tracker struct {
	snapshots store.SnapshotStore
}

func NewTracker(snapshots store.SnapshotStore) *Tracker {
	return &Tracker{snapshots: snapshots}
}

// collate aggregates cart items into kitchen lines, one per item key, in
// first-seen order.
func collate(items []cart.Item) []Line {
	var lines []Line
	index := make(map[string]int)
	for _, item := range items {
		key := ItemKey(item)
		if i, ok := index[key]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[key] = len(lines)
		lines = append(lines, Line{
			Key:       key,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
		})
	}
	return lines
}

// Delta returns the lines added since the last committed print for the
// owner. With no snapshot yet, the full current order is returned. The
// result is never negative: an item at or below its printed quantity is
// simply absent, and removals never appear. Quantity decreases reach the
// kitchen through an out-of-band correction, not through this tracker.
func (t *Tracker) Delta(ctx context.Context, owner string, items []cart.Item) ([]Line, error) {
	snapshot, err := t.snapshots.Get(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket snapshot for %s: %w", owner, err)
	}

	current := collate(items)
	if snapshot == nil {
		return current, nil
	}

	var delta []Line
	for _, line := range current {
		diff := line.Quantity - snapshot.Quantities[line.Key]
		if diff <= 0 {
			continue
		}
		line.Quantity = diff
		delta = append(delta, line)
	}
	return delta, nil
}

// Commit records the current per-key quantities as the new baseline. The
// snapshot is overwritten, not merged, so committing the same items twice
// is idempotent.
func (t *Tracker) Commit(ctx context.Context, owner string, items []cart.Item) error {
	quantities := make(map[string]int)
	for _, line := range collate(items) {
		quantities[line.Key] = line.Quantity
	}
	err := t.snapshots.Save(ctx, &store.TicketSnapshot{
		Owner:      owner,
		Quantities: quantities,
	})
	if err != nil {
		return fmt.Errorf("failed to commit ticket snapshot for %s: %w", owner, err)
	}
	return nil
}

// FullOrder returns every current line regardless of the snapshot, for an
// explicit "print full order" action. It never advances the baseline;
// callers decide whether a full print also commits.
func (t *Tracker) FullOrder(items []cart.Item) []Line {
	return collate(items)
}

// Discard drops the owner's snapshot. Called when an order closes or a
// cart is abandoned, so a reused owner id never inherits a stale
// baseline.
func (t *Tracker) Discard(ctx context.Context, owner string) error {
	if err := t.snapshots.Delete(ctx, owner); err != nil {
		return fmt.Errorf("failed to discard ticket snapshot for %s: %w", owner, err)
	}
	return nil
}
