// Package payment owns the capture/refund boundary. A payment is spawned
// per placed order; the gateway call happens between load and decide, and
// both outcomes (captured, failed) are terminal facts on the stream.
package payment

import (
	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
)

type Status string

const (
	StatusInitiated Status = "initiated"
	StatusCaptured  Status = "captured"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

type Payment struct {
	ID             string
	OrderID        string
	CheckoutID     string
	CustomerID     string
	Amount         int64
	Currency       string
	PaymentToken   string
	Status         Status
	TransactionID  string
	FailureReason  string
	RefundedAmount int64
}

func evolve(p Payment, event es.Event) Payment {
	switch e := event.(type) {
	case PaymentInitiated:
		p.ID = e.PaymentID
		p.OrderID = e.OrderID
		p.CheckoutID = e.CheckoutID
		p.CustomerID = e.CustomerID
		p.Amount = e.Amount
		p.Currency = e.Currency
		p.PaymentToken = e.PaymentToken
		p.Status = StatusInitiated
	case PaymentCaptured:
		p.Status = StatusCaptured
		p.TransactionID = e.TransactionID
	case PaymentFailed:
		p.Status = StatusFailed
		p.FailureReason = e.Reason
	case PaymentRefunded:
		p.Status = StatusRefunded
		p.RefundedAmount += e.Amount
	}
	return p
}

func integration(event es.Event) []messages.Message {
	switch e := event.(type) {
	case PaymentCaptured:
		return []messages.Message{
			messages.PaymentAuthorized{
				PaymentID:     e.PaymentID,
				OrderID:       e.OrderID,
				CheckoutID:    e.CheckoutID,
				CustomerID:    e.CustomerID,
				TransactionID: e.TransactionID,
				Amount:        e.Amount,
				Currency:      e.Currency,
			},
			messages.PaymentCaptured{
				PaymentID:     e.PaymentID,
				OrderID:       e.OrderID,
				CheckoutID:    e.CheckoutID,
				CustomerID:    e.CustomerID,
				TransactionID: e.TransactionID,
				Amount:        e.Amount,
				Currency:      e.Currency,
			},
		}
	case PaymentFailed:
		return []messages.Message{messages.PaymentFailed{
			PaymentID:  e.PaymentID,
			OrderID:    e.OrderID,
			CheckoutID: e.CheckoutID,
			CustomerID: e.CustomerID,
			Reason:     e.Reason,
			Retriable:  e.Retriable,
		}}
	}
	return nil
}

func Aggregate() es.Aggregate[Payment] {
	return es.Aggregate[Payment]{
		Type:           "payment",
		InitialState:   func() Payment { return Payment{} },
		Evolve:         evolve,
		UnmarshalEvent: eventFromJSON,
		MarshalEvent:   eventToJSON,
		Integration:    integration,
	}
}
