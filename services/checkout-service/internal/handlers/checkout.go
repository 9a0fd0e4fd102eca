package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/eventstore"
	"github.com/erikshafer/crittersupply/libs/httpx"
	"github.com/erikshafer/crittersupply/services/checkout-service/internal/checkout"
)

type CheckoutHandler struct {
	svc    *checkout.Service
	logger *slog.Logger
}

func NewCheckoutHandler(svc *checkout.Service, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, logger: logger}
}

func (h *CheckoutHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/checkouts/{id}", h.Get)
	mux.HandleFunc("PUT /api/v1/checkouts/{id}/shipping-address", h.ShippingAddress)
	mux.HandleFunc("PUT /api/v1/checkouts/{id}/shipping-method", h.ShippingMethod)
	mux.HandleFunc("PUT /api/v1/checkouts/{id}/payment-method", h.PaymentMethod)
	mux.HandleFunc("POST /api/v1/checkouts/{id}/complete", h.Complete)
}

type addressRequest struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type shippingMethodRequest struct {
	Method string `json:"method"`
}

type paymentMethodRequest struct {
	PaymentToken string `json:"payment_token"`
}

type checkoutResponse struct {
	CheckoutID   string `json:"checkout_id"`
	CartID       string `json:"cart_id"`
	CustomerID   string `json:"customer_id"`
	Status       string `json:"status"`
	Subtotal     int64  `json:"subtotal"`
	ShippingCost int64  `json:"shipping_cost"`
	Currency     string `json:"currency"`
	OrderID      string `json:"order_id,omitempty"`
}

func toCheckoutResponse(c checkout.Checkout) checkoutResponse {
	return checkoutResponse{
		CheckoutID:   c.ID,
		CartID:       c.CartID,
		CustomerID:   c.CustomerID,
		Status:       string(c.Status),
		Subtotal:     c.Subtotal(),
		ShippingCost: c.ShippingCost,
		Currency:     c.Currency,
		OrderID:      c.OrderID,
	}
}

func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	state, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCheckoutResponse(state))
}

func (h *CheckoutHandler) ShippingAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	state, err := h.svc.ProvideShippingAddress(r.Context(), id, checkout.Address{
		Name:       req.Name,
		Street:     req.Street,
		City:       req.City,
		Region:     req.Region,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	})
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCheckoutResponse(state))
}

func (h *CheckoutHandler) ShippingMethod(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req shippingMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	state, err := h.svc.SelectShippingMethod(r.Context(), id, req.Method)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCheckoutResponse(state))
}

func (h *CheckoutHandler) PaymentMethod(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req paymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	state, err := h.svc.ProvidePaymentMethod(r.Context(), id, req.PaymentToken)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCheckoutResponse(state))
}

func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	state, err := h.svc.CompleteCheckout(r.Context(), id)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCheckoutResponse(state))
}

func (h *CheckoutHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid checkout id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *CheckoutHandler) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case es.IsRejection(err):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, es.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "checkout not found")
	case errors.Is(err, eventstore.ErrConcurrencyConflict):
		httpx.WriteError(w, http.StatusConflict, "concurrent modification, retry")
	default:
		h.logger.Error("checkout command failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
