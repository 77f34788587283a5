package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/pos-sync/internal/orderservice"
)

// MockClient is an in-memory stand-in for the remote order service. It
// keeps a real order/line table so tests can run full mutate-then-refresh
// cycles, while recording calls and allowing per-method error injection.
type MockClient struct {
	mu     sync.Mutex
	orders map[string]*orderservice.Order
	lines  map[string]orderservice.Line
	nextID int

	// Recorded calls
	FetchOrderCalls []string
	FetchLinesCalls [][]string
	CreateCalls     []CreateLineCall
	UpdateCalls     []UpdateLineCall
	DeleteCalls     []string

	// Injectable failures
	FetchOrderErr error
	FetchLinesErr error
	CreateErr     error
	UpdateErr     error
	DeleteErr     error
}

type CreateLineCall struct {
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice int
	Name      string
}

type UpdateLineCall struct {
	LineID    string
	Quantity  int
	UnitPrice int
}

func NewMockClient() *MockClient {
	return &MockClient{
		orders: make(map[string]*orderservice.Order),
		lines:  make(map[string]orderservice.Line),
	}
}

// SeedOrder installs an order with the given state and lines.
func (m *MockClient) SeedOrder(orderID, state string, lines ...orderservice.Line) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := &orderservice.Order{ID: orderID, State: state}
	for _, line := range lines {
		if line.Subtotal == 0 {
			line.Subtotal = line.Quantity * line.UnitPrice
		}
		m.lines[line.ID] = line
		order.LineIDs = append(order.LineIDs, line.ID)
	}
	m.orders[orderID] = order
}

// SetState flips an order's lifecycle state, e.g. to simulate the order
// being paid on the server while the client holds a stale cart.
func (m *MockClient) SetState(orderID, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order, ok := m.orders[orderID]; ok {
		order.State = state
	}
}

// Line returns the current server-side line record.
func (m *MockClient) Line(lineID string) (orderservice.Line, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	line, ok := m.lines[lineID]
	return line, ok
}

func (m *MockClient) FetchOrder(ctx context.Context, orderID string) (*orderservice.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchOrderCalls = append(m.FetchOrderCalls, orderID)
	if m.FetchOrderErr != nil {
		return nil, m.FetchOrderErr
	}
	order, ok := m.orders[orderID]
	if !ok {
		return nil, &orderservice.APIError{Status: 404, Code: "order_not_found", Message: "no such order"}
	}
	copied := *order
	copied.LineIDs = append([]string(nil), order.LineIDs...)
	return &copied, nil
}

func (m *MockClient) FetchLines(ctx context.Context, lineIDs []string) ([]orderservice.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchLinesCalls = append(m.FetchLinesCalls, lineIDs)
	if m.FetchLinesErr != nil {
		return nil, m.FetchLinesErr
	}
	var lines []orderservice.Line
	for _, id := range lineIDs {
		if line, ok := m.lines[id]; ok {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (m *MockClient) CreateLine(ctx context.Context, orderID, productID string, quantity, unitPrice int, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, CreateLineCall{orderID, productID, quantity, unitPrice, name})
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	order, ok := m.orders[orderID]
	if !ok {
		return "", &orderservice.APIError{Status: 404, Code: "order_not_found", Message: "no such order"}
	}
	if order.Closed() {
		return "", &orderservice.APIError{Status: 409, Code: "order_closed", Message: "order is " + order.State}
	}

	m.nextID++
	lineID := fmt.Sprintf("line-%d", m.nextID)
	m.lines[lineID] = orderservice.Line{
		ID:        lineID,
		ProductID: productID,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  quantity * unitPrice,
	}
	order.LineIDs = append(order.LineIDs, lineID)
	return lineID, nil
}

func (m *MockClient) UpdateLine(ctx context.Context, lineID string, quantity, unitPrice int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = append(m.UpdateCalls, UpdateLineCall{lineID, quantity, unitPrice})
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	line, ok := m.lines[lineID]
	if !ok {
		return &orderservice.APIError{Status: 404, Code: "line_not_found", Message: "no such line"}
	}
	line.Quantity = quantity
	line.UnitPrice = unitPrice
	line.Subtotal = quantity * unitPrice
	m.lines[lineID] = line
	return nil
}

func (m *MockClient) DeleteLine(ctx context.Context, lineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, lineID)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.lines[lineID]; !ok {
		return &orderservice.APIError{Status: 404, Code: "line_not_found", Message: "no such line"}
	}
	delete(m.lines, lineID)
	for _, order := range m.orders {
		for i, id := range order.LineIDs {
			if id == lineID {
				order.LineIDs = append(order.LineIDs[:i], order.LineIDs[i+1:]...)
				break
			}
		}
	}
	return nil
}
