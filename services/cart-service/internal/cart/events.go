package cart

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	CartInitializedEventType     = "CartInitialized"
	CartItemAddedEventType       = "CartItemAdded"
	CartItemRemovedEventType     = "CartItemRemoved"
	ItemQuantityChangedEventType = "CartItemQuantityChanged"
	CartClearedEventType         = "CartCleared"
	CartAbandonedEventType       = "CartAbandoned"
	CartCheckedOutEventType      = "CartCheckedOut"
)

type CartInitialized struct {
	CartID     string `json:"cart_id"`
	CustomerID string `json:"customer_id"`
	Currency   string `json:"currency"`
}

func (CartInitialized) EventType() string { return CartInitializedEventType }

type CartItemAdded struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

func (CartItemAdded) EventType() string { return CartItemAddedEventType }

type CartItemRemoved struct {
	SKU string `json:"sku"`
}

func (CartItemRemoved) EventType() string { return CartItemRemovedEventType }

type CartItemQuantityChanged struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func (CartItemQuantityChanged) EventType() string { return ItemQuantityChangedEventType }

type CartCleared struct{}

func (CartCleared) EventType() string { return CartClearedEventType }

type CartAbandoned struct{}

func (CartAbandoned) EventType() string { return CartAbandonedEventType }

// CartCheckedOut carries everything the checkout boundary needs so the
// resulting integration message is self-contained.
type CartCheckedOut struct {
	CheckoutID string          `json:"checkout_id"`
	CartID     string          `json:"cart_id"`
	CustomerID string          `json:"customer_id"`
	Lines      []messages.Line `json:"lines"`
	Currency   string          `json:"currency"`
}

func (CartCheckedOut) EventType() string { return CartCheckedOutEventType }

func eventFromJSON(eventType string, payload []byte) (es.Event, error) {
	switch eventType {
	case CartInitializedEventType:
		var e CartInitialized
		return e, json.Unmarshal(payload, &e)
	case CartItemAddedEventType:
		var e CartItemAdded
		return e, json.Unmarshal(payload, &e)
	case CartItemRemovedEventType:
		var e CartItemRemoved
		return e, json.Unmarshal(payload, &e)
	case ItemQuantityChangedEventType:
		var e CartItemQuantityChanged
		return e, json.Unmarshal(payload, &e)
	case CartClearedEventType:
		var e CartCleared
		return e, json.Unmarshal(payload, &e)
	case CartAbandonedEventType:
		var e CartAbandoned
		return e, json.Unmarshal(payload, &e)
	case CartCheckedOutEventType:
		var e CartCheckedOut
		return e, json.Unmarshal(payload, &e)
	default:
		return nil, fmt.Errorf("unknown cart event type %q", eventType)
	}
}

func eventToJSON(e es.Event) ([]byte, error) {
	return json.Marshal(e)
}
