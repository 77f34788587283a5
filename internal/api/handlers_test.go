package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pos-sync/internal/auth"
	"github.com/example/pos-sync/internal/cart"
	"github.com/example/pos-sync/internal/infrastructure/store"
	"github.com/example/pos-sync/internal/kitchen"
	"github.com/example/pos-sync/internal/orderservice"
	"github.com/example/pos-sync/internal/orderservice/mocks"
	"github.com/example/pos-sync/internal/ordersync"
	"github.com/example/pos-sync/internal/ticket"
)

type nullFeed struct{}

func (nullFeed) Publish(ctx context.Context, key string, event any) error { return nil }

type testServer struct {
	server *httptest.Server
	client *mocks.MockClient
	carts  *cart.Store
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	carts := cart.NewStore()
	client := mocks.NewMockClient()
	tracker := ticket.NewTracker(store.NewMemorySnapshotStore())
	engine := ordersync.NewEngine(carts, client).WithTicketDiscard(tracker)
	dispatcher := kitchen.NewDispatcher(carts, tracker, nullFeed{})

	registry := auth.NewDeviceRegistry()
	require.NoError(t, registry.Register("register-1", "1234", "cashier"))
	jwtService := auth.NewJWTService("test-secret-key-for-testing-purposes", 15*time.Minute, 24*time.Hour)

	handlers := NewHandlers(carts, engine, dispatcher, registry, jwtService)
	server := httptest.NewServer(NewRouter(handlers, jwtService))
	t.Cleanup(server.Close)

	ts := &testServer{server: server, client: client, carts: carts}
	ts.token = ts.login(t, "register-1", "1234")
	return ts
}

func (ts *testServer) login(t *testing.T, deviceID, pin string) string {
	t.Helper()
	resp := ts.doRaw(t, http.MethodPost, "/auth/login", map[string]string{
		"device_id": deviceID, "operator": "alice", "pin": pin,
	}, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

func (ts *testServer) doRaw(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	return ts.doRaw(t, method, path, body, ts.token)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ============================================
// Auth
// ============================================

func TestAPI_Login_WrongPin(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.doRaw(t, http.MethodPost, "/auth/login", map[string]string{
		"device_id": "register-1", "pin": "9999",
	}, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_CartRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.doRaw(t, http.MethodGet, "/cart", nil, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_RefreshToken(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.doRaw(t, http.MethodPost, "/auth/login", map[string]string{
		"device_id": "register-1", "operator": "alice", "pin": "1234",
	}, "")
	login := decode[map[string]string](t, resp)

	resp = ts.doRaw(t, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": login["refresh_token"],
	}, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	refreshed := decode[map[string]string](t, resp)
	assert.NotEmpty(t, refreshed["access_token"])
}

// ============================================
// Cart flow
// ============================================

func TestAPI_AddItem_GuestCart(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/cart/owner", map[string]any{"guest": true})
	owner := decode[map[string]string](t, resp)["owner"]
	require.NotEmpty(t, owner)

	resp = ts.do(t, http.MethodPost, "/cart/items", map[string]any{
		"product_id": "p1", "name": "Espresso", "unit_price": 250, "quantity": 2,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	items := ts.carts.Read(owner)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestAPI_AddItem_InvalidQuantity(t *testing.T) {
	ts := newTestServer(t)
	ts.carts.SetCurrentOwner("guest-x")

	resp := ts.do(t, http.MethodPost, "/cart/items", map[string]any{
		"product_id": "p1", "name": "Espresso", "unit_price": 250, "quantity": 0,
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_OrderBoundFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.client.SeedOrder("42", "draft")
	owner := cart.OwnerForOrder("42")
	ts.carts.SetCurrentOwner(owner)

	// Add a line: pushed remotely and refreshed back.
	resp := ts.do(t, http.MethodPost, "/cart/items", map[string]any{
		"product_id": "p1", "name": "Espresso", "unit_price": 250, "quantity": 2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	items := ts.carts.Read(owner)
	require.Len(t, items, 1)
	require.NotEmpty(t, items[0].LineID)

	// Change its quantity through the item endpoint.
	resp = ts.do(t, http.MethodPatch, "/cart/items/"+items[0].ID, map[string]any{
		"owner": owner, "quantity": 5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	line, ok := ts.client.Line(items[0].LineID)
	require.True(t, ok)
	assert.Equal(t, 5, line.Quantity)

	// Remove it.
	resp = ts.do(t, http.MethodDelete, "/cart/items/"+items[0].ID+"?owner="+owner, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	assert.Empty(t, ts.carts.Read(owner))
}

func TestAPI_ChangeItem_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.carts.SetCurrentOwner("guest-x")

	resp := ts.do(t, http.MethodPatch, "/cart/items/ghost", map[string]any{"quantity": 2})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ============================================
// Orders
// ============================================

func TestAPI_RefreshOrder_Closed(t *testing.T) {
	ts := newTestServer(t)
	ts.client.SeedOrder("42", "paid")
	owner := cart.OwnerForOrder("42")
	require.NoError(t, ts.carts.Upsert(owner, cart.Item{ID: "p1", ProductID: "p1", Name: "Espresso", Quantity: 1, UnitPrice: 250}))

	resp := ts.do(t, http.MethodPost, "/orders/42/refresh", nil)
	body := decode[map[string]any](t, resp)

	assert.Equal(t, true, body["closed"])
	assert.Equal(t, "paid", body["state"])
	assert.Empty(t, ts.carts.Read(owner))

	// Further edits on the closed order are rejected.
	resp = ts.do(t, http.MethodPost, "/cart/items", map[string]any{
		"owner": owner, "product_id": "p1", "name": "Espresso", "unit_price": 250, "quantity": 1,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_ReconcileOrder(t *testing.T) {
	ts := newTestServer(t)
	ts.client.SeedOrder("42", "draft", orderservice.Line{
		ID: "line-1", ProductID: "p1", Name: "Espresso", Quantity: 1, UnitPrice: 250,
	})

	resp := ts.do(t, http.MethodPost, "/orders/42/reconcile", map[string]any{
		"lines": map[string]any{
			"p1": map[string]any{"quantity": 3, "unit_price": 250, "name": "Espresso"},
		},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, ts.client.CreateCalls, 1)
	assert.Equal(t, 2, ts.client.CreateCalls[0].Quantity)
}

// ============================================
// Tickets
// ============================================

func TestAPI_PrintDelta(t *testing.T) {
	ts := newTestServer(t)
	owner := "order_42"
	require.NoError(t, ts.carts.Upsert(owner, cart.Item{ID: "p1", ProductID: "p1", Name: "Espresso", Quantity: 2, UnitPrice: 250}))

	resp := ts.do(t, http.MethodPost, "/tickets/delta", map[string]string{"owner": owner})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	printed := decode[kitchen.Ticket](t, resp)
	assert.Equal(t, kitchen.KindDelta, printed.Kind)
	require.Len(t, printed.Lines, 1)
	assert.Equal(t, 2, printed.Lines[0].Quantity)

	// Nothing new: conflict.
	resp = ts.do(t, http.MethodPost, "/tickets/delta", map[string]string{"owner": owner})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_PrintFull(t *testing.T) {
	ts := newTestServer(t)
	owner := "order_42"
	require.NoError(t, ts.carts.Upsert(owner, cart.Item{ID: "p1", ProductID: "p1", Name: "Espresso", Quantity: 2, UnitPrice: 250}))

	resp := ts.do(t, http.MethodPost, "/tickets/full", map[string]any{"owner": owner, "advance": false})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	printed := decode[kitchen.Ticket](t, resp)
	assert.Equal(t, kitchen.KindFull, printed.Kind)
}

// ============================================
// Misc
// ============================================

func TestAPI_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/tickets/delta", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAPI_Health(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.doRaw(t, http.MethodGet, "/health", nil, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_GetCart(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.carts.Upsert("table-1", cart.Item{ID: "p1", ProductID: "p1", Name: "Espresso", Quantity: 2, UnitPrice: 250}))

	resp := ts.do(t, http.MethodGet, fmt.Sprintf("/cart?owner=%s", "table-1"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Owner string      `json:"owner"`
		Items []cart.Item `json:"items"`
	}](t, resp)

	assert.Equal(t, "table-1", body.Owner)
	require.Len(t, body.Items, 1)
	assert.Equal(t, 2, body.Items[0].Quantity)
}
