package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/eventstore"
	"github.com/erikshafer/crittersupply/libs/httpx"
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/services/fulfillment-service/internal/shipment"
)

// ShipmentHandler is the warehouse-facing command edge: assignment,
// dispatch, and carrier delivery callbacks arrive here.
type ShipmentHandler struct {
	svc    *shipment.Service
	logger *slog.Logger
}

func NewShipmentHandler(svc *shipment.Service, logger *slog.Logger) *ShipmentHandler {
	return &ShipmentHandler{svc: svc, logger: logger}
}

func (h *ShipmentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/shipments/{id}", h.Get)
	mux.HandleFunc("GET /api/v1/orders/{orderID}/shipment", h.GetByOrder)
	mux.HandleFunc("POST /api/v1/shipments/{id}/assign", h.Assign)
	mux.HandleFunc("POST /api/v1/shipments/{id}/dispatch", h.Dispatch)
	mux.HandleFunc("POST /api/v1/shipments/{id}/delivered", h.Delivered)
	mux.HandleFunc("POST /api/v1/shipments/{id}/delivery-failed", h.DeliveryFailed)
}

type assignRequest struct {
	Warehouse string `json:"warehouse"`
}

type dispatchRequest struct {
	Carrier      string `json:"carrier"`
	TrackingCode string `json:"tracking_code"`
}

type deliveredRequest struct {
	DeliveredAt time.Time `json:"delivered_at"`
}

type deliveryFailedRequest struct {
	Reason string `json:"reason"`
}

type shipmentResponse struct {
	ShipmentID   string `json:"shipment_id"`
	OrderID      string `json:"order_id"`
	CustomerID   string `json:"customer_id"`
	Status       string `json:"status"`
	Warehouse    string `json:"warehouse,omitempty"`
	Carrier      string `json:"carrier,omitempty"`
	TrackingCode string `json:"tracking_code,omitempty"`
	FailReason   string `json:"fail_reason,omitempty"`
}

func toShipmentResponse(s shipment.Shipment) shipmentResponse {
	return shipmentResponse{
		ShipmentID:   s.ID,
		OrderID:      s.OrderID,
		CustomerID:   s.CustomerID,
		Status:       string(s.Status),
		Warehouse:    s.Warehouse,
		Carrier:      s.Carrier,
		TrackingCode: s.TrackingCode,
		FailReason:   s.FailReason,
	}
}

func (h *ShipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	state, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toShipmentResponse(state))
}

func (h *ShipmentHandler) GetByOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")
	if orderID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "order id required")
		return
	}
	shipmentID := messages.DeriveStreamID(messages.NamespaceShipment, orderID)
	state, err := h.svc.Get(r.Context(), shipmentID)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toShipmentResponse(state))
}

func (h *ShipmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	state, err := h.svc.AssignWarehouse(r.Context(), id, req.Warehouse)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toShipmentResponse(state))
}

func (h *ShipmentHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	state, err := h.svc.DispatchShipment(r.Context(), id, req.Carrier, req.TrackingCode)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toShipmentResponse(state))
}

func (h *ShipmentHandler) Delivered(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req deliveredRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	state, err := h.svc.ConfirmDelivery(r.Context(), id, req.DeliveredAt)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toShipmentResponse(state))
}

func (h *ShipmentHandler) DeliveryFailed(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req deliveryFailedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	state, err := h.svc.RecordDeliveryFailure(r.Context(), id, req.Reason)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toShipmentResponse(state))
}

func (h *ShipmentHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid shipment id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ShipmentHandler) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case es.IsRejection(err):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, es.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "shipment not found")
	case errors.Is(err, eventstore.ErrConcurrencyConflict):
		httpx.WriteError(w, http.StatusConflict, "concurrent modification, retry")
	default:
		h.logger.Error("shipment command failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
