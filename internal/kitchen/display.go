package kitchen

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Display consumes the ticket feed and keeps the per-owner ticket history
// a kitchen screen shows. It is the read side of the feed; the dispatcher
// never talks to it directly.
type Display struct {
	mu      sync.RWMutex
	tickets map[string][]Ticket // owner -> tickets in arrival order
}

func NewDisplay() *Display {
	return &Display{tickets: make(map[string][]Ticket)}
}

// HandleMessage decodes one feed message. Malformed messages are logged
// and skipped so one bad producer cannot wedge the display.
func (d *Display) HandleMessage(ctx context.Context, key, value []byte) error {
	var t Ticket
	if err := json.Unmarshal(value, &t); err != nil {
		log.Printf("[Kitchen] Skipping malformed ticket message: %v", err)
		return nil
	}

	d.mu.Lock()
	d.tickets[t.Owner] = append(d.tickets[t.Owner], t)
	d.mu.Unlock()

	for _, line := range t.Lines {
		log.Printf("[Kitchen] %s ticket %s | %dx %s", t.Kind, t.ID, line.Quantity, line.Name)
	}
	return nil
}

// Tickets returns the tickets received for an owner, oldest first.
func (d *Display) Tickets(owner string) []Ticket {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Ticket, len(d.tickets[owner]))
	copy(out, d.tickets[owner])
	return out
}

// Drop forgets an owner's history, e.g. once the order is served.
func (d *Display) Drop(owner string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tickets, owner)
}
