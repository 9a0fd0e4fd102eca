package checkout

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	CheckoutStartedEventType         = "CheckoutStarted"
	ShippingAddressProvidedEventType = "ShippingAddressProvided"
	ShippingMethodSelectedEventType  = "ShippingMethodSelected"
	PaymentMethodProvidedEventType   = "PaymentMethodProvided"
	CheckoutCompletedEventType       = "CheckoutCompleted"
)

type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a Address) complete() bool {
	return a.Name != "" && a.Street != "" && a.City != "" && a.PostalCode != "" && a.Country != ""
}

type CheckoutStarted struct {
	CheckoutID string          `json:"checkout_id"`
	CartID     string          `json:"cart_id"`
	CustomerID string          `json:"customer_id"`
	Lines      []messages.Line `json:"lines"`
	Currency   string          `json:"currency"`
}

func (CheckoutStarted) EventType() string { return CheckoutStartedEventType }

type ShippingAddressProvided struct {
	Address Address `json:"address"`
}

func (ShippingAddressProvided) EventType() string { return ShippingAddressProvidedEventType }

type ShippingMethodSelected struct {
	Method string `json:"method"`
	Cost   int64  `json:"cost"`
}

func (ShippingMethodSelected) EventType() string { return ShippingMethodSelectedEventType }

type PaymentMethodProvided struct {
	PaymentToken string `json:"payment_token"`
}

func (PaymentMethodProvided) EventType() string { return PaymentMethodProvidedEventType }

// CheckoutCompleted is denormalized: it carries everything the OrderPlaced
// integration message needs so the mapping stays a pure function of the
// event.
type CheckoutCompleted struct {
	OrderID      string          `json:"order_id"`
	CheckoutID   string          `json:"checkout_id"`
	CustomerID   string          `json:"customer_id"`
	Lines        []messages.Line `json:"lines"`
	Subtotal     int64           `json:"subtotal"`
	ShippingCost int64           `json:"shipping_cost"`
	Total        int64           `json:"total"`
	Currency     string          `json:"currency"`
	PaymentToken string          `json:"payment_token"`
}

func (CheckoutCompleted) EventType() string { return CheckoutCompletedEventType }

func eventFromJSON(eventType string, payload []byte) (es.Event, error) {
	switch eventType {
	case CheckoutStartedEventType:
		var e CheckoutStarted
		return e, json.Unmarshal(payload, &e)
	case ShippingAddressProvidedEventType:
		var e ShippingAddressProvided
		return e, json.Unmarshal(payload, &e)
	case ShippingMethodSelectedEventType:
		var e ShippingMethodSelected
		return e, json.Unmarshal(payload, &e)
	case PaymentMethodProvidedEventType:
		var e PaymentMethodProvided
		return e, json.Unmarshal(payload, &e)
	case CheckoutCompletedEventType:
		var e CheckoutCompleted
		return e, json.Unmarshal(payload, &e)
	default:
		return nil, fmt.Errorf("unknown checkout event type %q", eventType)
	}
}

func eventToJSON(e es.Event) ([]byte, error) {
	return json.Marshal(e)
}
