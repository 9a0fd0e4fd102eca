// Package cart is the shopping cart consistency boundary. A cart is an
// append-only stream of line mutations; checking out freezes it and hands
// the contents to the checkout boundary via an integration message.
package cart

import (
	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusCleared    Status = "cleared"
	StatusAbandoned  Status = "abandoned"
	StatusCheckedOut Status = "checked_out"
)

// Line is one SKU's position in the cart. Adding the same SKU again
// merges into the existing line instead of creating a second one.
type Line struct {
	SKU       string
	Quantity  int
	UnitPrice int64
}

type Cart struct {
	ID         string
	CustomerID string
	Currency   string
	Status     Status
	Lines      []Line
}

func (c Cart) Subtotal() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.UnitPrice * int64(l.Quantity)
	}
	return total
}

func (c Cart) lineIndex(sku string) int {
	for i, l := range c.Lines {
		if l.SKU == sku {
			return i
		}
	}
	return -1
}

func evolve(c Cart, event es.Event) Cart {
	switch e := event.(type) {
	case CartInitialized:
		c.ID = e.CartID
		c.CustomerID = e.CustomerID
		c.Currency = e.Currency
		c.Status = StatusActive
	case CartItemAdded:
		if i := c.lineIndex(e.SKU); i >= 0 {
			c.Lines[i].Quantity += e.Quantity
			c.Lines[i].UnitPrice = e.UnitPrice
		} else {
			c.Lines = append(c.Lines, Line{SKU: e.SKU, Quantity: e.Quantity, UnitPrice: e.UnitPrice})
		}
	case CartItemRemoved:
		if i := c.lineIndex(e.SKU); i >= 0 {
			c.Lines = append(c.Lines[:i:i], c.Lines[i+1:]...)
		}
	case CartItemQuantityChanged:
		if i := c.lineIndex(e.SKU); i >= 0 {
			c.Lines[i].Quantity = e.Quantity
		}
	case CartCleared:
		c.Lines = nil
		c.Status = StatusCleared
	case CartAbandoned:
		c.Status = StatusAbandoned
	case CartCheckedOut:
		c.Status = StatusCheckedOut
	}
	return c
}

func integration(event es.Event) []messages.Message {
	switch e := event.(type) {
	case CartCheckedOut:
		return []messages.Message{messages.CheckoutInitiated{
			CheckoutID: e.CheckoutID,
			CartID:     e.CartID,
			CustomerID: e.CustomerID,
			Lines:      e.Lines,
			Currency:   e.Currency,
		}}
	}
	return nil
}

func Aggregate() es.Aggregate[Cart] {
	return es.Aggregate[Cart]{
		Type:           "cart",
		InitialState:   func() Cart { return Cart{} },
		Evolve:         evolve,
		UnmarshalEvent: eventFromJSON,
		MarshalEvent:   eventToJSON,
		Integration:    integration,
	}
}
