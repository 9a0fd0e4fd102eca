package messages

import "time"

// Message type strings double as broker topic names. The version suffix
// is part of the contract: breaking changes require a new type.
const (
	TypeCheckoutInitiated = "crittersupply.cart.checkout-initiated.v1"
	TypeCheckoutCompleted = "crittersupply.checkout.completed.v1"
	TypeOrderPlaced       = "crittersupply.checkout.order-placed.v1"

	TypeFulfillmentRequested   = "crittersupply.ordering.fulfillment-requested.v1"
	TypeShipmentDispatched     = "crittersupply.fulfillment.shipment-dispatched.v1"
	TypeShipmentDelivered      = "crittersupply.fulfillment.shipment-delivered.v1"
	TypeShipmentDeliveryFailed = "crittersupply.fulfillment.shipment-delivery-failed.v1"

	TypePaymentAuthorized = "crittersupply.payments.authorized.v1"
	TypePaymentCaptured   = "crittersupply.payments.captured.v1"
	TypePaymentFailed     = "crittersupply.payments.failed.v1"

	TypeReservationConfirmed        = "crittersupply.inventory.reservation-confirmed.v1"
	TypeReservationFailed           = "crittersupply.inventory.reservation-failed.v1"
	TypeReservationCommitted        = "crittersupply.inventory.reservation-committed.v1"
	TypeReservationReleased         = "crittersupply.inventory.reservation-released.v1"
	TypeReservationCommitRequested  = "crittersupply.ordering.reservation-commit-requested.v1"
	TypeReservationReleaseRequested = "crittersupply.ordering.reservation-release-requested.v1"

	TypeProductAdded        = "crittersupply.catalog.product-added.v1"
	TypeProductUpdated      = "crittersupply.catalog.product-updated.v1"
	TypeProductDiscontinued = "crittersupply.catalog.product-discontinued.v1"
)

// Line is one order line as carried across boundaries.
// UnitPrice is in the currency's minor unit (cents).
type Line struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type CheckoutInitiated struct {
	CheckoutID string `json:"checkout_id"`
	CartID     string `json:"cart_id"`
	CustomerID string `json:"customer_id"`
	Lines      []Line `json:"lines"`
	Currency   string `json:"currency"`
}

func (CheckoutInitiated) MessageType() string      { return TypeCheckoutInitiated }
func (m CheckoutInitiated) CorrelationKey() string { return m.CartID }

type CheckoutCompleted struct {
	CheckoutID string `json:"checkout_id"`
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Total      int64  `json:"total"`
	Currency   string `json:"currency"`
}

func (CheckoutCompleted) MessageType() string      { return TypeCheckoutCompleted }
func (m CheckoutCompleted) CorrelationKey() string { return m.CheckoutID }

type OrderPlaced struct {
	OrderID      string `json:"order_id"`
	CheckoutID   string `json:"checkout_id"`
	CustomerID   string `json:"customer_id"`
	Lines        []Line `json:"lines"`
	Subtotal     int64  `json:"subtotal"`
	ShippingCost int64  `json:"shipping_cost"`
	Total        int64  `json:"total"`
	Currency     string `json:"currency"`
	PaymentToken string `json:"payment_token"`
}

func (OrderPlaced) MessageType() string      { return TypeOrderPlaced }
func (m OrderPlaced) CorrelationKey() string { return m.OrderID }

type FulfillmentRequested struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Lines      []Line `json:"lines"`
}

func (FulfillmentRequested) MessageType() string      { return TypeFulfillmentRequested }
func (m FulfillmentRequested) CorrelationKey() string { return m.OrderID }

type ShipmentDispatched struct {
	ShipmentID   string `json:"shipment_id"`
	OrderID      string `json:"order_id"`
	CustomerID   string `json:"customer_id"`
	Carrier      string `json:"carrier"`
	TrackingCode string `json:"tracking_code"`
}

func (ShipmentDispatched) MessageType() string      { return TypeShipmentDispatched }
func (m ShipmentDispatched) CorrelationKey() string { return m.OrderID }

type ShipmentDelivered struct {
	ShipmentID  string    `json:"shipment_id"`
	OrderID     string    `json:"order_id"`
	CustomerID  string    `json:"customer_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

func (ShipmentDelivered) MessageType() string      { return TypeShipmentDelivered }
func (m ShipmentDelivered) CorrelationKey() string { return m.OrderID }

type ShipmentDeliveryFailed struct {
	ShipmentID string `json:"shipment_id"`
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
}

func (ShipmentDeliveryFailed) MessageType() string      { return TypeShipmentDeliveryFailed }
func (m ShipmentDeliveryFailed) CorrelationKey() string { return m.OrderID }

type PaymentAuthorized struct {
	PaymentID     string `json:"payment_id"`
	OrderID       string `json:"order_id"`
	CheckoutID    string `json:"checkout_id"`
	CustomerID    string `json:"customer_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

func (PaymentAuthorized) MessageType() string      { return TypePaymentAuthorized }
func (m PaymentAuthorized) CorrelationKey() string { return m.OrderID }

type PaymentCaptured struct {
	PaymentID     string `json:"payment_id"`
	OrderID       string `json:"order_id"`
	CheckoutID    string `json:"checkout_id"`
	CustomerID    string `json:"customer_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

func (PaymentCaptured) MessageType() string      { return TypePaymentCaptured }
func (m PaymentCaptured) CorrelationKey() string { return m.OrderID }

// PaymentFailed carries the gateway's retriable flag so the initiating
// boundary can decide whether a new capture attempt makes sense.
type PaymentFailed struct {
	PaymentID  string `json:"payment_id"`
	OrderID    string `json:"order_id"`
	CheckoutID string `json:"checkout_id"`
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
	Retriable  bool   `json:"retriable"`
}

func (PaymentFailed) MessageType() string      { return TypePaymentFailed }
func (m PaymentFailed) CorrelationKey() string { return m.OrderID }

type ReservationConfirmed struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
	Lines         []Line `json:"lines"`
}

func (ReservationConfirmed) MessageType() string      { return TypeReservationConfirmed }
func (m ReservationConfirmed) CorrelationKey() string { return m.OrderID }

type ReservationFailed struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
	Reason        string `json:"reason"`
}

func (ReservationFailed) MessageType() string      { return TypeReservationFailed }
func (m ReservationFailed) CorrelationKey() string { return m.OrderID }

type ReservationCommitted struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
}

func (ReservationCommitted) MessageType() string      { return TypeReservationCommitted }
func (m ReservationCommitted) CorrelationKey() string { return m.OrderID }

type ReservationReleased struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
	Reason        string `json:"reason"`
}

func (ReservationReleased) MessageType() string      { return TypeReservationReleased }
func (m ReservationReleased) CorrelationKey() string { return m.OrderID }

type ReservationCommitRequested struct {
	OrderID string `json:"order_id"`
}

func (ReservationCommitRequested) MessageType() string      { return TypeReservationCommitRequested }
func (m ReservationCommitRequested) CorrelationKey() string { return m.OrderID }

type ReservationReleaseRequested struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

func (ReservationReleaseRequested) MessageType() string      { return TypeReservationReleaseRequested }
func (m ReservationReleaseRequested) CorrelationKey() string { return m.OrderID }

type ProductAdded struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	Stock    int    `json:"stock"`
}

func (ProductAdded) MessageType() string      { return TypeProductAdded }
func (m ProductAdded) CorrelationKey() string { return m.SKU }

type ProductUpdated struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	Stock    int    `json:"stock"`
}

func (ProductUpdated) MessageType() string      { return TypeProductUpdated }
func (m ProductUpdated) CorrelationKey() string { return m.SKU }

type ProductDiscontinued struct {
	SKU string `json:"sku"`
}

func (ProductDiscontinued) MessageType() string      { return TypeProductDiscontinued }
func (m ProductDiscontinued) CorrelationKey() string { return m.SKU }
