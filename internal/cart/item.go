package cart

import (
	"strings"

	"github.com/google/uuid"
)

// OrderOwnerPrefix marks owners whose cart mirrors a remote order.
const OrderOwnerPrefix = "order_"

// Item is one product line in a cart.
//
// ProductID and LineID are remote identifiers and stay empty until the
// line has been resolved against the order service. Prices are integer
// minor units.
type Item struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id,omitempty"`
	LineID    string `json:"line_id,omitempty"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unit_price"`
	Subtotal  int    `json:"subtotal"`
	// RemoteSubtotal marks Subtotal as server-computed. Server subtotals
	// win over quantity*price because discounts and taxes are applied
	// remotely.
	RemoteSubtotal bool `json:"remote_subtotal,omitempty"`
}

// recalc recomputes the derived subtotal unless the server supplied one.
func (i *Item) recalc() {
	if !i.RemoteSubtotal {
		i.Subtotal = i.Quantity * i.UnitPrice
	}
}

// NewGuestOwner mints a synthetic owner id for a walk-in customer.
func NewGuestOwner() string {
	return "guest-" + uuid.New().String()
}

// OwnerForOrder returns the owner id binding a cart to a remote order.
func OwnerForOrder(orderID string) string {
	return OrderOwnerPrefix + orderID
}

// OrderForOwner extracts the remote order id from an order-bound owner.
// The second return is false for customer and guest owners.
func OrderForOwner(owner string) (string, bool) {
	if !strings.HasPrefix(owner, OrderOwnerPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(owner, OrderOwnerPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}
