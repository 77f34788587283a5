// Package kitchen carries printable tickets from the cart to the kitchen
// feed. The tracker decides what goes on a ticket; this package wraps it
// in a message, publishes it, and advances the print baseline only after
// the publish succeeded.
package kitchen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/pos-sync/internal/cart"
	"github.com/example/pos-sync/internal/ticket"
)

var ErrNothingToPrint = errors.New("nothing to print")

const (
	KindDelta = "delta"
	KindFull  = "full"
)

// Ticket is one kitchen print job as it travels over the feed.
type Ticket struct {
	ID        string        `json:"id"`
	Owner     string        `json:"owner"`
	OrderID   string        `json:"order_id,omitempty"`
	Kind      string        `json:"kind"`
	Lines     []ticket.Line `json:"lines"`
	PrintedAt time.Time     `json:"printed_at"`
}

// Publisher is the transport for tickets; the Kafka producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Dispatcher assembles tickets from cart state and emits them.
type Dispatcher struct {
	carts   *cart.Store
	tracker *ticket.Tracker
	feed    Publisher
}

func NewDispatcher(carts *cart.Store, tracker *ticket.Tracker, feed Publisher) *Dispatcher {
	return &Dispatcher{carts: carts, tracker: tracker, feed: feed}
}

// PrintDelta emits a ticket with only the lines added since the owner's
// last committed print, then commits the new baseline. The baseline never
// advances when the publish fails, so a retried print re-emits the same
// lines rather than losing them.
func (d *Dispatcher) PrintDelta(ctx context.Context, owner string) (*Ticket, error) {
	items := d.carts.Read(owner)
	lines, err := d.tracker.Delta(ctx, owner, items)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNothingToPrint
	}

	t := d.newTicket(owner, KindDelta, lines)
	if err := d.feed.Publish(ctx, owner, t); err != nil {
		return nil, fmt.Errorf("failed to publish ticket for %s: %w", owner, err)
	}

	if err := d.tracker.Commit(ctx, owner, items); err != nil {
		// The ticket is already out; an uncommitted baseline means the
		// next delta re-prints these lines. Report it, the caller may
		// retry the commit by reprinting.
		return t, fmt.Errorf("ticket %s printed but baseline not advanced: %w", t.ID, err)
	}

	log.Printf("[Kitchen] Printed delta ticket %s for %s (%d lines)", t.ID, owner, len(lines))
	return t, nil
}

// PrintFull emits the whole current order regardless of the baseline.
// With advance set, the baseline moves to the current quantities so a
// following delta print starts from here.
func (d *Dispatcher) PrintFull(ctx context.Context, owner string, advance bool) (*Ticket, error) {
	items := d.carts.Read(owner)
	lines := d.tracker.FullOrder(items)
	if len(lines) == 0 {
		return nil, ErrNothingToPrint
	}

	t := d.newTicket(owner, KindFull, lines)
	if err := d.feed.Publish(ctx, owner, t); err != nil {
		return nil, fmt.Errorf("failed to publish ticket for %s: %w", owner, err)
	}

	if advance {
		if err := d.tracker.Commit(ctx, owner, items); err != nil {
			return t, fmt.Errorf("ticket %s printed but baseline not advanced: %w", t.ID, err)
		}
	}

	log.Printf("[Kitchen] Printed full ticket %s for %s (%d lines)", t.ID, owner, len(lines))
	return t, nil
}

func (d *Dispatcher) newTicket(owner, kind string, lines []ticket.Line) *Ticket {
	t := &Ticket{
		ID:        uuid.New().String(),
		Owner:     owner,
		Kind:      kind,
		Lines:     lines,
		PrintedAt: time.Now(),
	}
	if orderID, bound := cart.OrderForOwner(owner); bound {
		t.OrderID = orderID
	}
	return t
}
