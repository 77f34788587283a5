package ordersync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/pos-sync/internal/cart"
	"github.com/example/pos-sync/internal/orderservice"
)

// EventPublisher receives engine lifecycle events. The Kafka producer
// satisfies it; a nil publisher disables the feed.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// SnapshotDiscarder drops the kitchen-ticket baseline for an owner once
// its order is gone. A nil discarder is allowed.
type SnapshotDiscarder interface {
	Discard(ctx context.Context, owner string) error
}

// Event is the envelope published to the event feed.
type Event struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Product identifies a catalog product being added to a cart.
type Product struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice int    `json:"unit_price"`
}

// Engine keeps order-bound carts eventually consistent with the remote
// order record. Local mutations apply optimistically and are pushed
// upstream; a refresh pulls the authoritative lines and overwrites the
// cart wholesale. Once an order is observed in a terminal state the
// engine clears its cart and rejects further mutations.
type Engine struct {
	carts   *cart.Store
	client  orderservice.Client
	events  EventPublisher
	tickets SnapshotDiscarder

	mu     sync.Mutex
	closed map[string]string // orderID -> terminal state observed
}

func NewEngine(carts *cart.Store, client orderservice.Client) *Engine {
	return &Engine{
		carts:  carts,
		client: client,
		closed: make(map[string]string),
	}
}

// WithEventFeed attaches a lifecycle event publisher.
func (e *Engine) WithEventFeed(pub EventPublisher) *Engine {
	e.events = pub
	return e
}

// WithTicketDiscard attaches a ticket snapshot discarder, invoked when an
// order closes.
func (e *Engine) WithTicketDiscard(d SnapshotDiscarder) *Engine {
	e.tickets = d
	return e
}

// ClosedState returns the terminal state observed for an order, if any.
func (e *Engine) ClosedState(orderID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.closed[orderID]
	return state, ok
}

// AddLine applies the new quantity for a product optimistically, then
// pushes a line creation to the remote order when the owner is bound to
// one. On remote success the cart is refreshed so server-computed prices
// win; on remote failure the optimistic item stays in place for the
// caller's retry, and the error is returned.
func (e *Engine) AddLine(ctx context.Context, owner string, product Product, quantity int) error {
	orderID, bound := cart.OrderForOwner(owner)
	if bound {
		if state, closed := e.ClosedState(orderID); closed {
			return fmt.Errorf("%w: order %s is %s", orderservice.ErrOrderClosed, orderID, state)
		}
	}

	item := cart.Item{
		ID:        product.ID,
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  quantity,
		UnitPrice: product.UnitPrice,
	}
	if err := e.carts.Upsert(owner, item); err != nil {
		return err
	}
	if !bound {
		return nil
	}

	lineID, err := e.client.CreateLine(ctx, orderID, product.ID, quantity, product.UnitPrice, product.Name)
	if err != nil {
		if errors.Is(err, orderservice.ErrOrderClosed) {
			// Not a transient failure but a state transition the
			// engine missed; observe it now.
			return e.recoverFromFailedWrite(ctx, orderID, fmt.Errorf("failed to create line: %w", err))
		}
		// The optimistic item stays; a retry or a later refresh
		// reconciles it.
		return fmt.Errorf("failed to create line: %w", err)
	}

	e.publish(ctx, orderID, EventLinePushed, LinePushed{
		OrderID:   orderID,
		LineID:    lineID,
		ProductID: product.ID,
		Quantity:  quantity,
		PushedAt:  time.Now(),
	})

	return e.Refresh(ctx, orderID)
}

// ChangeLineQuantity sets a line to a new quantity, removing it when the
// quantity drops to zero or below. The local cart is mutated first; when
// the line exists remotely the change is pushed, and a push failure
// forces a refresh so the cart never stays divergent from the server.
func (e *Engine) ChangeLineQuantity(ctx context.Context, owner string, item cart.Item, newQuantity int) error {
	orderID, bound := cart.OrderForOwner(owner)
	if bound {
		if state, closed := e.ClosedState(orderID); closed {
			return fmt.Errorf("%w: order %s is %s", orderservice.ErrOrderClosed, orderID, state)
		}
	}

	if newQuantity <= 0 {
		e.carts.Remove(owner, item.ID)
		if !bound || item.LineID == "" {
			return nil
		}
		if err := e.client.DeleteLine(ctx, item.LineID); err != nil {
			return e.recoverFromFailedWrite(ctx, orderID, fmt.Errorf("failed to delete line: %w", err))
		}
		return nil
	}

	item.Quantity = newQuantity
	if err := e.carts.Upsert(owner, item); err != nil {
		return err
	}
	if !bound || item.LineID == "" {
		return nil
	}
	if err := e.client.UpdateLine(ctx, item.LineID, newQuantity, item.UnitPrice); err != nil {
		return e.recoverFromFailedWrite(ctx, orderID, fmt.Errorf("failed to update line: %w", err))
	}
	return nil
}

// recoverFromFailedWrite re-derives cart state from the server after a
// delete/update failure left the write's outcome ambiguous. The original
// error is always reported to the caller.
func (e *Engine) recoverFromFailedWrite(ctx context.Context, orderID string, writeErr error) error {
	if refreshErr := e.Refresh(ctx, orderID); refreshErr != nil {
		return errors.Join(writeErr, refreshErr)
	}
	return writeErr
}

// Refresh pulls the authoritative order and overwrites the local cart.
// An order observed in a terminal state clears its cart, discards the
// ticket baseline and marks the order closed.
func (e *Engine) Refresh(ctx context.Context, orderID string) error {
	order, err := e.client.FetchOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}

	owner := cart.OwnerForOrder(orderID)
	if order.Closed() {
		e.markClosed(ctx, owner, order)
		return nil
	}

	lines, err := e.client.FetchLines(ctx, order.LineIDs)
	if err != nil {
		return fmt.Errorf("failed to fetch lines for order %s: %w", orderID, err)
	}

	items := make([]cart.Item, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		items = append(items, cart.Item{
			ID:             line.ID,
			ProductID:      line.ProductID,
			LineID:         line.ID,
			Name:           line.Name,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			Subtotal:       line.Subtotal,
			RemoteSubtotal: true,
		})
	}
	e.carts.Replace(owner, items)

	e.publish(ctx, orderID, EventOrderRefreshed, OrderRefreshed{
		OrderID:     orderID,
		State:       order.State,
		LineCount:   len(items),
		RefreshedAt: time.Now(),
	})
	return nil
}

func (e *Engine) markClosed(ctx context.Context, owner string, order *orderservice.Order) {
	e.mu.Lock()
	e.closed[order.ID] = order.State
	e.mu.Unlock()

	e.carts.Clear(owner)
	if e.tickets != nil {
		if err := e.tickets.Discard(ctx, owner); err != nil {
			log.Printf("[Sync] Failed to discard ticket snapshot for %s: %v", owner, err)
		}
	}

	log.Printf("[Sync] Order %s closed (%s), cart cleared", order.ID, order.State)
	e.publish(ctx, order.ID, EventOrderClosed, OrderClosed{
		OrderID:  order.ID,
		State:    order.State,
		ClosedAt: time.Now(),
	})
}

// DesiredLine is the target quantity for one product in a bulk push.
type DesiredLine struct {
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unit_price"`
	Name      string `json:"name"`
}

// ReconcileBulk pushes a locally assembled cart (e.g. lines queued while
// offline) onto a remote order. For every product whose desired quantity
// exceeds the server's, a new line is created for the difference.
//
// Decreases are deliberately never pushed through this path; they go
// through ChangeLineQuantity against a specific known line. A product the
// server has more of than desired is simply left alone here.
func (e *Engine) ReconcileBulk(ctx context.Context, orderID string, desired map[string]DesiredLine) error {
	order, err := e.client.FetchOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}

	owner := cart.OwnerForOrder(orderID)
	if order.Closed() {
		e.markClosed(ctx, owner, order)
		return fmt.Errorf("%w: order %s is %s", orderservice.ErrOrderClosed, orderID, order.State)
	}

	lines, err := e.client.FetchLines(ctx, order.LineIDs)
	if err != nil {
		return fmt.Errorf("failed to fetch lines for order %s: %w", orderID, err)
	}

	remoteQty := make(map[string]int)
	for _, line := range lines {
		remoteQty[line.ProductID] += line.Quantity
	}

	var pushErrs []error
	for productID, want := range desired {
		delta := want.Quantity - remoteQty[productID]
		if delta <= 0 {
			continue
		}
		lineID, err := e.client.CreateLine(ctx, orderID, productID, delta, want.UnitPrice, want.Name)
		if err != nil {
			pushErrs = append(pushErrs, fmt.Errorf("failed to create line for product %s: %w", productID, err))
			continue
		}
		e.publish(ctx, orderID, EventLinePushed, LinePushed{
			OrderID:   orderID,
			LineID:    lineID,
			ProductID: productID,
			Quantity:  delta,
			PushedAt:  time.Now(),
		})
	}

	if err := e.Refresh(ctx, orderID); err != nil {
		pushErrs = append(pushErrs, err)
	}
	return errors.Join(pushErrs...)
}

// publish emits a lifecycle event to the feed. Feed failures are logged,
// never propagated: cart consistency must not depend on the feed.
func (e *Engine) publish(ctx context.Context, orderID, eventType string, data any) {
	if e.events == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Sync] Failed to marshal %s event: %v", eventType, err)
		return
	}
	event := Event{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		EventType: eventType,
		Data:      payload,
		Timestamp: time.Now(),
	}
	if err := e.events.Publish(ctx, orderID, event); err != nil {
		log.Printf("[Sync] Failed to publish %s event for order %s: %v", eventType, orderID, err)
	}
}
