// Package reservation holds stock against a placed order until payment
// settles: committed on capture, released on failure. The stock counters
// themselves live in the products read model; this stream records the
// order's claim on them.
package reservation

import (
	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusCommitted Status = "committed"
	StatusReleased  Status = "released"
)

type Reservation struct {
	ID         string
	OrderID    string
	Lines      []messages.Line
	Status     Status
	FailReason string
}

func evolve(r Reservation, event es.Event) Reservation {
	switch e := event.(type) {
	case ReservationRequested:
		r.ID = e.ReservationID
		r.OrderID = e.OrderID
		r.Lines = e.Lines
		r.Status = StatusPending
	case ReservationConfirmed:
		r.Status = StatusConfirmed
	case ReservationFailed:
		r.Status = StatusFailed
		r.FailReason = e.Reason
	case ReservationCommitted:
		r.Status = StatusCommitted
	case ReservationReleased:
		r.Status = StatusReleased
	}
	return r
}

func integration(event es.Event) []messages.Message {
	switch e := event.(type) {
	case ReservationConfirmed:
		return []messages.Message{messages.ReservationConfirmed{
			ReservationID: e.ReservationID,
			OrderID:       e.OrderID,
			Lines:         e.Lines,
		}}
	case ReservationFailed:
		return []messages.Message{messages.ReservationFailed{
			ReservationID: e.ReservationID,
			OrderID:       e.OrderID,
			Reason:        e.Reason,
		}}
	case ReservationCommitted:
		return []messages.Message{messages.ReservationCommitted{
			ReservationID: e.ReservationID,
			OrderID:       e.OrderID,
		}}
	case ReservationReleased:
		return []messages.Message{messages.ReservationReleased{
			ReservationID: e.ReservationID,
			OrderID:       e.OrderID,
			Reason:        e.Reason,
		}}
	}
	return nil
}

func Aggregate() es.Aggregate[Reservation] {
	return es.Aggregate[Reservation]{
		Type:           "reservation",
		InitialState:   func() Reservation { return Reservation{} },
		Evolve:         evolve,
		UnmarshalEvent: eventFromJSON,
		MarshalEvent:   eventToJSON,
		Integration:    integration,
	}
}
