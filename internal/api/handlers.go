package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/example/pos-sync/internal/auth"
	"github.com/example/pos-sync/internal/cart"
	"github.com/example/pos-sync/internal/kitchen"
	"github.com/example/pos-sync/internal/orderservice"
	"github.com/example/pos-sync/internal/ordersync"
)

// Handlers is the HTTP surface the register UI talks to.
type Handlers struct {
	carts      *cart.Store
	engine     *ordersync.Engine
	dispatcher *kitchen.Dispatcher
	registry   *auth.DeviceRegistry
	jwtService *auth.JWTService
}

func NewHandlers(
	carts *cart.Store,
	engine *ordersync.Engine,
	dispatcher *kitchen.Dispatcher,
	registry *auth.DeviceRegistry,
	jwtService *auth.JWTService,
) *Handlers {
	return &Handlers{
		carts:      carts,
		engine:     engine,
		dispatcher: dispatcher,
		registry:   registry,
		jwtService: jwtService,
	}
}

// Auth handlers

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"device_id"`
		Operator string `json:"operator"`
		Pin      string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	role, err := h.registry.Authenticate(req.DeviceID, req.Pin)
	if err != nil {
		respondError(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	accessToken, expiresAt, err := h.jwtService.GenerateAccessToken(req.DeviceID, req.Operator, role)
	if err != nil {
		respondError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	refreshToken, _, err := h.jwtService.GenerateRefreshToken(req.DeviceID)
	if err != nil {
		respondError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_at":    expiresAt.Format(time.RFC3339),
	})
}

func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	deviceID, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		respondError(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}
	role, ok := h.registry.Role(deviceID)
	if !ok {
		respondError(w, "device no longer registered", http.StatusUnauthorized)
		return
	}

	accessToken, expiresAt, err := h.jwtService.GenerateAccessToken(deviceID, "", role)
	if err != nil {
		respondError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": accessToken,
		"expires_at":   expiresAt.Format(time.RFC3339),
	})
}

// Cart handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = h.carts.CurrentOwner()
	}

	items := h.carts.Read(owner)
	respondJSON(w, http.StatusOK, map[string]any{
		"owner": owner,
		"items": items,
	})
}

func (h *Handlers) SetOwner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner string `json:"owner"`
		Guest bool   `json:"guest"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	owner := req.Owner
	if req.Guest {
		owner = cart.NewGuestOwner()
	}
	if owner == "" {
		respondError(w, "owner is required", http.StatusBadRequest)
		return
	}

	h.carts.SetCurrentOwner(owner)
	respondJSON(w, http.StatusOK, map[string]string{"owner": owner})
}

func (h *Handlers) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner     string `json:"owner"`
		ProductID string `json:"product_id"`
		Name      string `json:"name"`
		UnitPrice int    `json:"unit_price"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	owner := req.Owner
	if owner == "" {
		owner = h.carts.CurrentOwner()
	}
	if owner == "" {
		respondError(w, "owner is required", http.StatusBadRequest)
		return
	}

	product := ordersync.Product{ID: req.ProductID, Name: req.Name, UnitPrice: req.UnitPrice}
	if err := h.engine.AddLine(r.Context(), owner, product, req.Quantity); err != nil {
		respondSyncError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"items": h.carts.Read(owner)})
}

func (h *Handlers) ChangeCartItem(w http.ResponseWriter, r *http.Request) {
	itemID := extractPathParam(r.URL.Path, "/cart/items/")

	var req struct {
		Owner    string `json:"owner"`
		Quantity int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	owner := req.Owner
	if owner == "" {
		owner = h.carts.CurrentOwner()
	}

	item, ok := findItem(h.carts.Read(owner), itemID)
	if !ok {
		respondError(w, "item not found", http.StatusNotFound)
		return
	}

	if err := h.engine.ChangeLineQuantity(r.Context(), owner, item, req.Quantity); err != nil {
		respondSyncError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"items": h.carts.Read(owner)})
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	itemID := extractPathParam(r.URL.Path, "/cart/items/")
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = h.carts.CurrentOwner()
	}

	item, ok := findItem(h.carts.Read(owner), itemID)
	if !ok {
		respondError(w, "item not found", http.StatusNotFound)
		return
	}

	if err := h.engine.ChangeLineQuantity(r.Context(), owner, item, 0); err != nil {
		respondSyncError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = h.carts.CurrentOwner()
	}

	h.carts.Clear(owner)
	w.WriteHeader(http.StatusNoContent)
}

// Order handlers

func (h *Handlers) RefreshOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSuffix(extractPathParam(r.URL.Path, "/orders/"), "/refresh")
	if orderID == "" {
		respondError(w, "order id is required", http.StatusBadRequest)
		return
	}

	if err := h.engine.Refresh(r.Context(), orderID); err != nil {
		respondSyncError(w, err)
		return
	}

	owner := cart.OwnerForOrder(orderID)
	state, closed := h.engine.ClosedState(orderID)
	respondJSON(w, http.StatusOK, map[string]any{
		"owner":  owner,
		"closed": closed,
		"state":  state,
		"items":  h.carts.Read(owner),
	})
}

func (h *Handlers) ReconcileOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSuffix(extractPathParam(r.URL.Path, "/orders/"), "/reconcile")
	if orderID == "" {
		respondError(w, "order id is required", http.StatusBadRequest)
		return
	}

	var req struct {
		Lines map[string]ordersync.DesiredLine `json:"lines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.engine.ReconcileBulk(r.Context(), orderID, req.Lines); err != nil {
		respondSyncError(w, err)
		return
	}

	owner := cart.OwnerForOrder(orderID)
	respondJSON(w, http.StatusOK, map[string]any{"items": h.carts.Read(owner)})
}

// Ticket handlers

func (h *Handlers) PrintDelta(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	owner := req.Owner
	if owner == "" {
		owner = h.carts.CurrentOwner()
	}

	ticket, err := h.dispatcher.PrintDelta(r.Context(), owner)
	if err != nil {
		respondSyncError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, ticket)
}

func (h *Handlers) PrintFull(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner   string `json:"owner"`
		Advance bool   `json:"advance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	owner := req.Owner
	if owner == "" {
		owner = h.carts.CurrentOwner()
	}

	ticket, err := h.dispatcher.PrintFull(r.Context(), owner, req.Advance)
	if err != nil {
		respondSyncError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, ticket)
}

// Helpers

func findItem(items []cart.Item, itemID string) (cart.Item, bool) {
	for _, item := range items {
		if item.ID == itemID {
			return item, true
		}
	}
	return cart.Item{}, false
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondSyncError maps core errors onto HTTP statuses.
func respondSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, orderservice.ErrOrderClosed):
		respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, kitchen.ErrNothingToPrint):
		respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, orderservice.ErrOrderNotFound),
		errors.Is(err, orderservice.ErrLineNotFound),
		errors.Is(err, orderservice.ErrProductNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	default:
		var apiErr *orderservice.APIError
		if errors.As(err, &apiErr) {
			respondError(w, err.Error(), http.StatusBadGateway)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
	}
}

func extractPathParam(path, prefix string) string {
	param := strings.TrimPrefix(path, prefix)
	return strings.TrimSuffix(param, "/")
}
