package payment

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/erikshafer/crittersupply/libs/es"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	PaymentInitiatedEventType = "PaymentInitiated"
	PaymentCapturedEventType  = "PaymentCaptured"
	PaymentFailedEventType    = "PaymentFailed"
	PaymentRefundedEventType  = "PaymentRefunded"
)

type PaymentInitiated struct {
	PaymentID    string `json:"payment_id"`
	OrderID      string `json:"order_id"`
	CheckoutID   string `json:"checkout_id"`
	CustomerID   string `json:"customer_id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	PaymentToken string `json:"payment_token"`
}

func (PaymentInitiated) EventType() string { return PaymentInitiatedEventType }

// Captured and Failed repeat the order context so the integration mapping
// stays a pure function of the single event.
type PaymentCaptured struct {
	PaymentID     string `json:"payment_id"`
	OrderID       string `json:"order_id"`
	CheckoutID    string `json:"checkout_id"`
	CustomerID    string `json:"customer_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

func (PaymentCaptured) EventType() string { return PaymentCapturedEventType }

type PaymentFailed struct {
	PaymentID  string `json:"payment_id"`
	OrderID    string `json:"order_id"`
	CheckoutID string `json:"checkout_id"`
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
	Retriable  bool   `json:"retriable"`
}

func (PaymentFailed) EventType() string { return PaymentFailedEventType }

type PaymentRefunded struct {
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

func (PaymentRefunded) EventType() string { return PaymentRefundedEventType }

func eventFromJSON(eventType string, payload []byte) (es.Event, error) {
	switch eventType {
	case PaymentInitiatedEventType:
		var e PaymentInitiated
		return e, json.Unmarshal(payload, &e)
	case PaymentCapturedEventType:
		var e PaymentCaptured
		return e, json.Unmarshal(payload, &e)
	case PaymentFailedEventType:
		var e PaymentFailed
		return e, json.Unmarshal(payload, &e)
	case PaymentRefundedEventType:
		var e PaymentRefunded
		return e, json.Unmarshal(payload, &e)
	default:
		return nil, fmt.Errorf("unknown payment event type %q", eventType)
	}
}

func eventToJSON(e es.Event) ([]byte, error) {
	return json.Marshal(e)
}
