// Package checkout owns the order-placement boundary. A checkout is
// spawned from a cart hand-off, collects shipping and payment details in
// any order, and completing it places the order exactly once.
package checkout

import (
	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Checkout struct {
	ID           string
	CartID       string
	CustomerID   string
	Currency     string
	Lines        []messages.Line
	Status       Status
	Address      Address
	HasAddress   bool
	Method       string
	ShippingCost int64
	PaymentToken string
	OrderID      string
}

func (c Checkout) Subtotal() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.UnitPrice * int64(l.Quantity)
	}
	return total
}

func evolve(c Checkout, event es.Event) Checkout {
	switch e := event.(type) {
	case CheckoutStarted:
		c.ID = e.CheckoutID
		c.CartID = e.CartID
		c.CustomerID = e.CustomerID
		c.Currency = e.Currency
		c.Lines = e.Lines
		c.Status = StatusInProgress
	case ShippingAddressProvided:
		c.Address = e.Address
		c.HasAddress = true
	case ShippingMethodSelected:
		c.Method = e.Method
		c.ShippingCost = e.Cost
	case PaymentMethodProvided:
		c.PaymentToken = e.PaymentToken
	case CheckoutCompleted:
		c.Status = StatusCompleted
		c.OrderID = e.OrderID
	}
	return c
}

func integration(event es.Event) []messages.Message {
	switch e := event.(type) {
	case CheckoutCompleted:
		return []messages.Message{
			messages.CheckoutCompleted{
				CheckoutID: e.CheckoutID,
				OrderID:    e.OrderID,
				CustomerID: e.CustomerID,
				Total:      e.Total,
				Currency:   e.Currency,
			},
			messages.OrderPlaced{
				OrderID:      e.OrderID,
				CheckoutID:   e.CheckoutID,
				CustomerID:   e.CustomerID,
				Lines:        e.Lines,
				Subtotal:     e.Subtotal,
				ShippingCost: e.ShippingCost,
				Total:        e.Total,
				Currency:     e.Currency,
				PaymentToken: e.PaymentToken,
			},
		}
	}
	return nil
}

func Aggregate() es.Aggregate[Checkout] {
	return es.Aggregate[Checkout]{
		Type:           "checkout",
		InitialState:   func() Checkout { return Checkout{} },
		Evolve:         evolve,
		UnmarshalEvent: eventFromJSON,
		MarshalEvent:   eventToJSON,
		Integration:    integration,
	}
}
