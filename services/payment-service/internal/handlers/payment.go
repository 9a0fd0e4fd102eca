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
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/services/payment-service/internal/payment"
)

type PaymentHandler struct {
	svc    *payment.Service
	logger *slog.Logger
}

func NewPaymentHandler(svc *payment.Service, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, logger: logger}
}

func (h *PaymentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/payments/{id}", h.Get)
	mux.HandleFunc("GET /api/v1/orders/{orderID}/payment", h.GetByOrder)
	mux.HandleFunc("POST /api/v1/payments/{id}/refund", h.Refund)
}

type refundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

type paymentResponse struct {
	PaymentID      string `json:"payment_id"`
	OrderID        string `json:"order_id"`
	CustomerID     string `json:"customer_id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	RefundedAmount int64  `json:"refunded_amount"`
	FailureReason  string `json:"failure_reason,omitempty"`
}

func toPaymentResponse(p payment.Payment) paymentResponse {
	return paymentResponse{
		PaymentID:      p.ID,
		OrderID:        p.OrderID,
		CustomerID:     p.CustomerID,
		Status:         string(p.Status),
		Amount:         p.Amount,
		Currency:       p.Currency,
		RefundedAmount: p.RefundedAmount,
		FailureReason:  p.FailureReason,
	}
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid payment id")
		return
	}
	state, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPaymentResponse(state))
}

func (h *PaymentHandler) GetByOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")
	if orderID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "order id required")
		return
	}
	paymentID := messages.DeriveStreamID(messages.NamespacePayment, orderID)
	state, err := h.svc.Get(r.Context(), paymentID)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPaymentResponse(state))
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid payment id")
		return
	}
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	state, err := h.svc.RequestRefund(r.Context(), id, req.Amount, req.Reason)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPaymentResponse(state))
}

func (h *PaymentHandler) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case es.IsRejection(err):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, es.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "payment not found")
	case errors.Is(err, eventstore.ErrConcurrencyConflict):
		httpx.WriteError(w, http.StatusConflict, "concurrent modification, retry")
	default:
		h.logger.Error("payment command failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
