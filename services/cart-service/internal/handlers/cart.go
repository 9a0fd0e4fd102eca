package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/erikshafer/crittersupply/libs/auth"
	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/eventstore"
	"github.com/erikshafer/crittersupply/libs/httpx"
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/services/cart-service/internal/cart"
)

type CartHandler struct {
	svc    *cart.Service
	logger *slog.Logger
}

func NewCartHandler(svc *cart.Service, logger *slog.Logger) *CartHandler {
	return &CartHandler{svc: svc, logger: logger}
}

func (h *CartHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/carts", h.Create)
	mux.HandleFunc("GET /api/v1/carts/{id}", h.Get)
	mux.HandleFunc("POST /api/v1/carts/{id}/items", h.AddItem)
	mux.HandleFunc("PUT /api/v1/carts/{id}/items/{sku}", h.ChangeQuantity)
	mux.HandleFunc("DELETE /api/v1/carts/{id}/items/{sku}", h.RemoveItem)
	mux.HandleFunc("POST /api/v1/carts/{id}/clear", h.Clear)
	mux.HandleFunc("POST /api/v1/carts/{id}/abandon", h.Abandon)
	mux.HandleFunc("POST /api/v1/carts/{id}/checkout", h.Checkout)
}

type createCartRequest struct {
	CartID   string `json:"cart_id"`
	Currency string `json:"currency"`
}

type addItemRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type changeQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type lineItem struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type cartResponse struct {
	CartID     string     `json:"cart_id"`
	CustomerID string     `json:"customer_id"`
	Currency   string     `json:"currency"`
	Status     string     `json:"status"`
	Lines      []lineItem `json:"lines"`
	Subtotal   int64      `json:"subtotal"`
}

type checkoutResponse struct {
	CheckoutID string `json:"checkout_id"`
	CartID     string `json:"cart_id"`
}

func toCartResponse(c cart.Cart) cartResponse {
	lines := make([]lineItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, lineItem{SKU: l.SKU, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return cartResponse{
		CartID:     c.ID,
		CustomerID: c.CustomerID,
		Currency:   c.Currency,
		Status:     string(c.Status),
		Lines:      lines,
		Subtotal:   c.Subtotal(),
	}
}

func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromRequest(r)
	if principal.ID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "customer identity required")
		return
	}

	var req createCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	cartID := uuid.New()
	if strings.TrimSpace(req.CartID) != "" {
		parsed, err := uuid.Parse(req.CartID)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid cart_id")
			return
		}
		cartID = parsed
	}

	state, err := h.svc.InitializeCart(r.Context(), cartID, principal.ID, req.Currency)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toCartResponse(state))
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	state, err := h.svc.Get(r.Context(), cartID)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCartResponse(state))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	state, err := h.svc.AddItemToCart(r.Context(), cartID, strings.TrimSpace(req.SKU), req.Quantity)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCartResponse(state))
}

func (h *CartHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req changeQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	state, err := h.svc.ChangeItemQuantity(r.Context(), cartID, r.PathValue("sku"), req.Quantity)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCartResponse(state))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	state, err := h.svc.RemoveItemFromCart(r.Context(), cartID, r.PathValue("sku"))
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCartResponse(state))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	state, err := h.svc.ClearCart(r.Context(), cartID)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCartResponse(state))
}

func (h *CartHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	state, err := h.svc.AbandonCart(r.Context(), cartID)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCartResponse(state))
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	state, err := h.svc.InitiateCheckout(r.Context(), cartID)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	checkoutID := messages.DeriveStreamID(messages.NamespaceCheckout, state.ID)
	httpx.WriteJSON(w, http.StatusAccepted, checkoutResponse{
		CheckoutID: checkoutID.String(),
		CartID:     state.ID,
	})
}

func (h *CartHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid cart id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *CartHandler) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case es.IsRejection(err):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, es.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "cart not found")
	case errors.Is(err, eventstore.ErrConcurrencyConflict):
		httpx.WriteError(w, http.StatusConflict, "concurrent modification, retry")
	default:
		h.logger.Error("cart command failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
