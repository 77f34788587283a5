package orderservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// State classification
// ============================================

func TestStateClosed(t *testing.T) {
	tests := []struct {
		state  string
		closed bool
	}{
		{"done", true},
		{"cancelled", true},
		{"paid", true},
		{"receipted", true},
		{"invoiced", true},
		{"posted", true},
		{"draft", false},
		{"sent", false},
		{"waiting_payment", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			assert.Equal(t, tt.closed, StateClosed(tt.state))
			order := Order{State: tt.state}
			assert.Equal(t, tt.closed, order.Closed())
		})
	}
}

// ============================================
// APIError
// ============================================

func TestAPIError_SentinelMapping(t *testing.T) {
	tests := []struct {
		code     string
		sentinel error
	}{
		{"order_not_found", ErrOrderNotFound},
		{"order_closed", ErrOrderClosed},
		{"product_not_found", ErrProductNotFound},
		{"line_not_found", ErrLineNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := &APIError{Status: 409, Code: tt.code, Message: "boom"}
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestAPIError_UnknownCode(t *testing.T) {
	err := &APIError{Status: 500, Code: "weird", Message: "boom"}
	assert.NotErrorIs(t, err, ErrOrderClosed)
	assert.Contains(t, err.Error(), "weird")
}

// ============================================
// HTTP client
// ============================================

func TestHTTPClient_FetchOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders/42", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(Order{ID: "42", State: "draft", LineIDs: []string{"l1"}})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret")
	order, err := client.FetchOrder(context.Background(), "42")

	require.NoError(t, err)
	assert.Equal(t, "42", order.ID)
	assert.Equal(t, []string{"l1"}, order.LineIDs)
	assert.False(t, order.Closed())
}

func TestHTTPClient_FetchLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/order-lines/fetch", r.URL.Path)

		var req struct {
			LineIDs []string `json:"line_ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"l1", "l2"}, req.LineIDs)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"lines": []Line{
				{ID: "l1", ProductID: "p1", Quantity: 2, UnitPrice: 500, Subtotal: 1000},
				{ID: "l2", ProductID: "p2", Quantity: 1, UnitPrice: 300, Subtotal: 300},
			},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	lines, err := client.FetchLines(context.Background(), []string{"l1", "l2"})

	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "p1", lines[0].ProductID)
}

func TestHTTPClient_FetchLines_EmptySkipsNetwork(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", "")
	lines, err := client.FetchLines(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestHTTPClient_CreateLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/42/lines", r.URL.Path)
		var req struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "p1", req.ProductID)
		assert.Equal(t, 3, req.Quantity)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"line_id": "line-9"})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	lineID, err := client.CreateLine(context.Background(), "42", "p1", 3, 500, "espresso")

	require.NoError(t, err)
	assert.Equal(t, "line-9", lineID)
}

func TestHTTPClient_UpdateAndDeleteLine(t *testing.T) {
	var methods, paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	require.NoError(t, client.UpdateLine(context.Background(), "line-9", 4, 500))
	require.NoError(t, client.DeleteLine(context.Background(), "line-9"))

	assert.Equal(t, []string{http.MethodPatch, http.MethodDelete}, methods)
	assert.Equal(t, []string{"/order-lines/line-9", "/order-lines/line-9"}, paths)
}

func TestHTTPClient_StructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "order_closed",
			"message": "order is paid",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	err := client.UpdateLine(context.Background(), "line-9", 4, 500)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOrderClosed)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestHTTPClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	err := client.DeleteLine(context.Background(), "line-9")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestHTTPClient_NetworkError(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", "")
	_, err := client.FetchOrder(context.Background(), "42")
	require.Error(t, err)

	// Transport failures are not structured remote failures.
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
