package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erikshafer/crittersupply/libs/auth"
	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/httpx"
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/services/inventory-service/internal/products"
	"github.com/erikshafer/crittersupply/services/inventory-service/internal/reservation"
)

// Publisher stages catalog change messages; outbox.Enqueuer in production.
type Publisher interface {
	Publish(ctx context.Context, causationID string, msgs ...messages.Message) error
}

// ProductHandler serves the read-only catalog (consumed by the cart
// boundary) and the admin surface that announces catalog changes. Changes
// are published as Product* messages and applied by the router, so every
// consumer sees the same stream.
type ProductHandler struct {
	repo      *products.Repository
	resSvc    *reservation.Service
	publisher Publisher
	logger    *slog.Logger
}

func NewProductHandler(repo *products.Repository, resSvc *reservation.Service, publisher Publisher, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{repo: repo, resSvc: resSvc, publisher: publisher, logger: logger}
}

func (h *ProductHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/products/{sku}", h.Get)
	mux.HandleFunc("PUT /api/v1/products/{sku}", h.Upsert)
	mux.HandleFunc("DELETE /api/v1/products/{sku}", h.Discontinue)
	mux.HandleFunc("GET /api/v1/orders/{orderID}/reservation", h.GetReservation)
}

type productResponse struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	Currency     string `json:"currency"`
	Available    int    `json:"available"`
	Discontinued bool   `json:"discontinued"`
}

type upsertProductRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	Stock    int    `json:"stock"`
}

type reservationResponse struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	FailReason    string `json:"fail_reason,omitempty"`
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	sku := r.PathValue("sku")
	p, err := h.repo.Get(r.Context(), sku)
	if errors.Is(err, products.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.logger.Error("product lookup failed", "err", err, "sku", sku)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, productResponse{
		SKU:          p.SKU,
		Name:         p.Name,
		Price:        p.Price,
		Currency:     p.Currency,
		Available:    p.Stock - p.Reserved,
		Discontinued: p.Discontinued,
	})
}

func (h *ProductHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	sku := strings.TrimSpace(r.PathValue("sku"))
	var req upsertProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Name == "" || req.Price <= 0 || req.Stock < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "name, positive price and non-negative stock required")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	var msg messages.Message
	if _, err := h.repo.Get(r.Context(), sku); errors.Is(err, products.ErrNotFound) {
		msg = messages.ProductAdded{SKU: sku, Name: req.Name, Price: req.Price, Currency: req.Currency, Stock: req.Stock}
	} else if err != nil {
		h.logger.Error("product lookup failed", "err", err, "sku", sku)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	} else {
		msg = messages.ProductUpdated{SKU: sku, Name: req.Name, Price: req.Price, Currency: req.Currency, Stock: req.Stock}
	}

	if err := h.publisher.Publish(r.Context(), "", msg); err != nil {
		h.logger.Error("catalog change publish failed", "err", err, "sku", sku)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"sku": sku})
}

func (h *ProductHandler) Discontinue(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	sku := strings.TrimSpace(r.PathValue("sku"))
	if err := h.publisher.Publish(r.Context(), "", messages.ProductDiscontinued{SKU: sku}); err != nil {
		h.logger.Error("catalog change publish failed", "err", err, "sku", sku)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"sku": sku})
}

func (h *ProductHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")
	reservationID := messages.DeriveStreamID(messages.NamespaceReservation, orderID)
	state, err := h.resSvc.Get(r.Context(), reservationID)
	if errors.Is(err, es.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "reservation not found")
		return
	}
	if err != nil {
		h.logger.Error("reservation lookup failed", "err", err, "order_id", orderID)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reservationResponse{
		ReservationID: state.ID,
		OrderID:       state.OrderID,
		Status:        string(state.Status),
		FailReason:    state.FailReason,
	})
}

func (h *ProductHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	principal := auth.PrincipalFromRequest(r)
	if principal.Claims["role"] != "admin" {
		httpx.WriteError(w, http.StatusForbidden, "admin role required")
		return false
	}
	return true
}
