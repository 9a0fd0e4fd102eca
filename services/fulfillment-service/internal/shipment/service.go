package shipment

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
)

type Service struct {
	handler *es.Handler[Shipment]
	logger  *slog.Logger
}

func NewService(store es.EventStore, logger *slog.Logger) *Service {
	return &Service{
		handler: es.NewHandler(store, Aggregate(), "fulfillment-service", logger),
		logger:  logger,
	}
}

func (s *Service) Get(ctx context.Context, shipmentID uuid.UUID) (Shipment, error) {
	state, _, err := s.handler.Load(ctx, shipmentID)
	return state, err
}

// RequestFulfillment spawns the shipment for a paid order. Callers absorb
// es.ErrAlreadyExists as duplicate delivery.
func (s *Service) RequestFulfillment(ctx context.Context, shipmentID uuid.UUID, orderID, customerID string, lines []messages.Line) (Shipment, error) {
	const command = "RequestFulfillment"
	if len(lines) == 0 {
		return Shipment{}, es.Reject(command, "shipment requires at least one line")
	}
	return s.handler.Start(ctx, shipmentID, command, func(sh Shipment) ([]es.Event, error) {
		return []es.Event{ShipmentRequested{
			ShipmentID: shipmentID.String(),
			OrderID:    orderID,
			CustomerID: customerID,
			Lines:      lines,
		}}, nil
	})
}

func (s *Service) AssignWarehouse(ctx context.Context, shipmentID uuid.UUID, warehouse string) (Shipment, error) {
	const command = "AssignWarehouse"
	if warehouse == "" {
		return Shipment{}, es.Reject(command, "warehouse required")
	}
	return s.handler.Execute(ctx, shipmentID, command, func(sh Shipment) ([]es.Event, error) {
		switch sh.Status {
		case StatusPending:
			return []es.Event{WarehouseAssigned{Warehouse: warehouse}}, nil
		case StatusAssigned:
			if sh.Warehouse == warehouse {
				return nil, nil
			}
			// Reassignment before dispatch is allowed.
			return []es.Event{WarehouseAssigned{Warehouse: warehouse}}, nil
		default:
			return nil, es.Reject(command, "shipment is "+string(sh.Status))
		}
	})
}

func (s *Service) DispatchShipment(ctx context.Context, shipmentID uuid.UUID, carrier, trackingCode string) (Shipment, error) {
	const command = "DispatchShipment"
	if carrier == "" || trackingCode == "" {
		return Shipment{}, es.Reject(command, "carrier and tracking code required")
	}
	return s.handler.Execute(ctx, shipmentID, command, func(sh Shipment) ([]es.Event, error) {
		if sh.Status != StatusAssigned {
			return nil, es.Reject(command, "shipment is "+string(sh.Status)+", must be assigned")
		}
		return []es.Event{ShipmentDispatched{
			ShipmentID:   sh.ID,
			OrderID:      sh.OrderID,
			CustomerID:   sh.CustomerID,
			Carrier:      carrier,
			TrackingCode: trackingCode,
		}}, nil
	})
}

// ConfirmDelivery is idempotent: confirming an already delivered shipment
// appends nothing, so carrier webhooks can fire twice.
func (s *Service) ConfirmDelivery(ctx context.Context, shipmentID uuid.UUID, deliveredAt time.Time) (Shipment, error) {
	const command = "ConfirmDelivery"
	if deliveredAt.IsZero() {
		deliveredAt = time.Now().UTC()
	}
	return s.handler.Execute(ctx, shipmentID, command, func(sh Shipment) ([]es.Event, error) {
		switch sh.Status {
		case StatusDelivered:
			return nil, nil
		case StatusDispatched:
			return []es.Event{ShipmentDelivered{
				ShipmentID:  sh.ID,
				OrderID:     sh.OrderID,
				CustomerID:  sh.CustomerID,
				DeliveredAt: deliveredAt,
			}}, nil
		default:
			return nil, es.Reject(command, "shipment is "+string(sh.Status)+", must be dispatched")
		}
	})
}

func (s *Service) RecordDeliveryFailure(ctx context.Context, shipmentID uuid.UUID, reason string) (Shipment, error) {
	const command = "RecordDeliveryFailure"
	if reason == "" {
		return Shipment{}, es.Reject(command, "reason required")
	}
	return s.handler.Execute(ctx, shipmentID, command, func(sh Shipment) ([]es.Event, error) {
		if sh.Status != StatusDispatched {
			return nil, es.Reject(command, "shipment is "+string(sh.Status)+", must be dispatched")
		}
		return []es.Event{ShipmentDeliveryFailed{
			ShipmentID: sh.ID,
			OrderID:    sh.OrderID,
			CustomerID: sh.CustomerID,
			Reason:     reason,
		}}, nil
	})
}
