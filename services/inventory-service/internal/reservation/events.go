package reservation

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	ReservationRequestedEventType = "ReservationRequested"
	ReservationConfirmedEventType = "ReservationConfirmed"
	ReservationFailedEventType    = "ReservationFailed"
	ReservationCommittedEventType = "ReservationCommitted"
	ReservationReleasedEventType  = "ReservationReleased"
)

type ReservationRequested struct {
	ReservationID string          `json:"reservation_id"`
	OrderID       string          `json:"order_id"`
	Lines         []messages.Line `json:"lines"`
}

func (ReservationRequested) EventType() string { return ReservationRequestedEventType }

type ReservationConfirmed struct {
	ReservationID string          `json:"reservation_id"`
	OrderID       string          `json:"order_id"`
	Lines         []messages.Line `json:"lines"`
}

func (ReservationConfirmed) EventType() string { return ReservationConfirmedEventType }

type ReservationFailed struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
	Reason        string `json:"reason"`
}

func (ReservationFailed) EventType() string { return ReservationFailedEventType }

type ReservationCommitted struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
}

func (ReservationCommitted) EventType() string { return ReservationCommittedEventType }

type ReservationReleased struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
	Reason        string `json:"reason"`
}

func (ReservationReleased) EventType() string { return ReservationReleasedEventType }

func eventFromJSON(eventType string, payload []byte) (es.Event, error) {
	switch eventType {
	case ReservationRequestedEventType:
		var e ReservationRequested
		return e, json.Unmarshal(payload, &e)
	case ReservationConfirmedEventType:
		var e ReservationConfirmed
		return e, json.Unmarshal(payload, &e)
	case ReservationFailedEventType:
		var e ReservationFailed
		return e, json.Unmarshal(payload, &e)
	case ReservationCommittedEventType:
		var e ReservationCommitted
		return e, json.Unmarshal(payload, &e)
	case ReservationReleasedEventType:
		var e ReservationReleased
		return e, json.Unmarshal(payload, &e)
	default:
		return nil, fmt.Errorf("unknown reservation event type %q", eventType)
	}
}

func eventToJSON(e es.Event) ([]byte, error) {
	return json.Marshal(e)
}
