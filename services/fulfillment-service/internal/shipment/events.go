package shipment

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	ShipmentRequestedEventType      = "ShipmentRequested"
	WarehouseAssignedEventType      = "WarehouseAssigned"
	ShipmentDispatchedEventType     = "ShipmentDispatched"
	ShipmentDeliveredEventType      = "ShipmentDelivered"
	ShipmentDeliveryFailedEventType = "ShipmentDeliveryFailed"
)

type ShipmentRequested struct {
	ShipmentID string          `json:"shipment_id"`
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Lines      []messages.Line `json:"lines"`
}

func (ShipmentRequested) EventType() string { return ShipmentRequestedEventType }

type WarehouseAssigned struct {
	Warehouse string `json:"warehouse"`
}

func (WarehouseAssigned) EventType() string { return WarehouseAssignedEventType }

type ShipmentDispatched struct {
	ShipmentID   string `json:"shipment_id"`
	OrderID      string `json:"order_id"`
	CustomerID   string `json:"customer_id"`
	Carrier      string `json:"carrier"`
	TrackingCode string `json:"tracking_code"`
}

func (ShipmentDispatched) EventType() string { return ShipmentDispatchedEventType }

type ShipmentDelivered struct {
	ShipmentID  string    `json:"shipment_id"`
	OrderID     string    `json:"order_id"`
	CustomerID  string    `json:"customer_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

func (ShipmentDelivered) EventType() string { return ShipmentDeliveredEventType }

type ShipmentDeliveryFailed struct {
	ShipmentID string `json:"shipment_id"`
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
}

func (ShipmentDeliveryFailed) EventType() string { return ShipmentDeliveryFailedEventType }

func eventFromJSON(eventType string, payload []byte) (es.Event, error) {
	switch eventType {
	case ShipmentRequestedEventType:
		var e ShipmentRequested
		return e, json.Unmarshal(payload, &e)
	case WarehouseAssignedEventType:
		var e WarehouseAssigned
		return e, json.Unmarshal(payload, &e)
	case ShipmentDispatchedEventType:
		var e ShipmentDispatched
		return e, json.Unmarshal(payload, &e)
	case ShipmentDeliveredEventType:
		var e ShipmentDelivered
		return e, json.Unmarshal(payload, &e)
	case ShipmentDeliveryFailedEventType:
		var e ShipmentDeliveryFailed
		return e, json.Unmarshal(payload, &e)
	default:
		return nil, fmt.Errorf("unknown shipment event type %q", eventType)
	}
}

func eventToJSON(e es.Event) ([]byte, error) {
	return json.Marshal(e)
}
