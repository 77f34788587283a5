package orderservice

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderClosed     = errors.New("order is closed")
	ErrProductNotFound = errors.New("product not found")
	ErrLineNotFound    = errors.New("order line not found")
)

// Closed lifecycle states. The open set is unbounded (draft, sent, waiting
// for payment, ...); anything not listed here counts as in progress.
const (
	StateDone      = "done"
	StateCancelled = "cancelled"
	StatePaid      = "paid"
	StateReceipted = "receipted"
	StateInvoiced  = "invoiced"
	StatePosted    = "posted"
)

var closedStates = map[string]bool{
	StateDone:      true,
	StateCancelled: true,
	StatePaid:      true,
	StateReceipted: true,
	StateInvoiced:  true,
	StatePosted:    true,
}

// StateClosed reports whether a remote lifecycle state is terminal.
func StateClosed(state string) bool {
	return closedStates[state]
}

// Order is the authoritative order header as the remote service reports it.
type Order struct {
	ID      string   `json:"id"`
	State   string   `json:"state"`
	LineIDs []string `json:"line_ids"`
}

// Closed reports whether the order has reached a terminal state.
func (o *Order) Closed() bool {
	return StateClosed(o.State)
}

// Line is one authoritative order line. Subtotal is server-computed and
// may differ from Quantity*UnitPrice when discounts or taxes apply.
type Line struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unit_price"`
	Subtotal  int    `json:"subtotal"`
}

// Client is the surface of the remote order service this process consumes.
// The wire format behind it is the collaborator's concern.
type Client interface {
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	FetchLines(ctx context.Context, lineIDs []string) ([]Line, error)
	CreateLine(ctx context.Context, orderID, productID string, quantity, unitPrice int, name string) (string, error)
	UpdateLine(ctx context.Context, lineID string, quantity, unitPrice int) error
	DeleteLine(ctx context.Context, lineID string) error
}

// APIError is a structured failure returned by the order service.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("order service: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("order service: %s (status %d)", e.Message, e.Status)
}

// Unwrap maps well-known remote error codes onto sentinel errors so
// callers can branch with errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "order_not_found":
		return ErrOrderNotFound
	case "order_closed":
		return ErrOrderClosed
	case "product_not_found":
		return ErrProductNotFound
	case "line_not_found":
		return ErrLineNotFound
	}
	return nil
}
