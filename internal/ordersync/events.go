package ordersync

import "time"

const (
	EventOrderRefreshed = "OrderRefreshed"
	EventOrderClosed    = "OrderClosed"
	EventLinePushed     = "LinePushed"
)

type OrderRefreshed struct {
	OrderID     string    `json:"order_id"`
	State       string    `json:"state"`
	LineCount   int       `json:"line_count"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

type OrderClosed struct {
	OrderID  string    `json:"order_id"`
	State    string    `json:"state"`
	ClosedAt time.Time `json:"closed_at"`
}

type LinePushed struct {
	OrderID   string    `json:"order_id"`
	LineID    string    `json:"line_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	PushedAt  time.Time `json:"pushed_at"`
}
