// Package shipment tracks an order's physical journey: requested from a
// paid order, assigned to a warehouse, dispatched with a carrier, and
// finally delivered or failed. Both end states are terminal.
package shipment

import (
	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusAssigned       Status = "assigned"
	StatusDispatched     Status = "dispatched"
	StatusDelivered      Status = "delivered"
	StatusDeliveryFailed Status = "delivery_failed"
)

type Shipment struct {
	ID           string
	OrderID      string
	CustomerID   string
	Lines        []messages.Line
	Status       Status
	Warehouse    string
	Carrier      string
	TrackingCode string
	FailReason   string
}

func evolve(s Shipment, event es.Event) Shipment {
	switch e := event.(type) {
	case ShipmentRequested:
		s.ID = e.ShipmentID
		s.OrderID = e.OrderID
		s.CustomerID = e.CustomerID
		s.Lines = e.Lines
		s.Status = StatusPending
	case WarehouseAssigned:
		s.Warehouse = e.Warehouse
		s.Status = StatusAssigned
	case ShipmentDispatched:
		s.Carrier = e.Carrier
		s.TrackingCode = e.TrackingCode
		s.Status = StatusDispatched
	case ShipmentDelivered:
		s.Status = StatusDelivered
	case ShipmentDeliveryFailed:
		s.FailReason = e.Reason
		s.Status = StatusDeliveryFailed
	}
	return s
}

func integration(event es.Event) []messages.Message {
	switch e := event.(type) {
	case ShipmentDispatched:
		return []messages.Message{messages.ShipmentDispatched{
			ShipmentID:   e.ShipmentID,
			OrderID:      e.OrderID,
			CustomerID:   e.CustomerID,
			Carrier:      e.Carrier,
			TrackingCode: e.TrackingCode,
		}}
	case ShipmentDelivered:
		return []messages.Message{messages.ShipmentDelivered{
			ShipmentID:  e.ShipmentID,
			OrderID:     e.OrderID,
			CustomerID:  e.CustomerID,
			DeliveredAt: e.DeliveredAt,
		}}
	case ShipmentDeliveryFailed:
		return []messages.Message{messages.ShipmentDeliveryFailed{
			ShipmentID: e.ShipmentID,
			OrderID:    e.OrderID,
			CustomerID: e.CustomerID,
			Reason:     e.Reason,
		}}
	}
	return nil
}

func Aggregate() es.Aggregate[Shipment] {
	return es.Aggregate[Shipment]{
		Type:           "shipment",
		InitialState:   func() Shipment { return Shipment{} },
		Evolve:         evolve,
		UnmarshalEvent: eventFromJSON,
		MarshalEvent:   eventToJSON,
		Integration:    integration,
	}
}
