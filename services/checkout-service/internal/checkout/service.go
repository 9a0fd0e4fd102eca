package checkout

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
)

// Shipping rates in minor units, keyed by method. The rate is snapshotted
// into the event at selection time so a later price change never alters a
// replayed total.
var shippingRates = map[string]int64{
	"standard": 599,
	"express":  1499,
}

type Service struct {
	handler *es.Handler[Checkout]
	logger  *slog.Logger
}

func NewService(store es.EventStore, logger *slog.Logger) *Service {
	return &Service{
		handler: es.NewHandler(store, Aggregate(), "checkout-service", logger),
		logger:  logger,
	}
}

func (s *Service) Get(ctx context.Context, checkoutID uuid.UUID) (Checkout, error) {
	state, _, err := s.handler.Load(ctx, checkoutID)
	return state, err
}

// StartCheckout spawns the checkout from a cart hand-off. Callers absorb
// es.ErrAlreadyExists as duplicate delivery.
func (s *Service) StartCheckout(ctx context.Context, checkoutID uuid.UUID, cartID, customerID string, lines []messages.Line, currency string) (Checkout, error) {
	const command = "StartCheckout"
	if len(lines) == 0 {
		return Checkout{}, es.Reject(command, "checkout requires at least one line")
	}
	return s.handler.Start(ctx, checkoutID, command, func(c Checkout) ([]es.Event, error) {
		return []es.Event{CheckoutStarted{
			CheckoutID: checkoutID.String(),
			CartID:     cartID,
			CustomerID: customerID,
			Lines:      lines,
			Currency:   currency,
		}}, nil
	})
}

func (s *Service) ProvideShippingAddress(ctx context.Context, checkoutID uuid.UUID, addr Address) (Checkout, error) {
	const command = "ProvideShippingAddress"
	if !addr.complete() {
		return Checkout{}, es.Reject(command, "address is missing required fields")
	}
	return s.handler.Execute(ctx, checkoutID, command, func(c Checkout) ([]es.Event, error) {
		if err := requireInProgress(command, c); err != nil {
			return nil, err
		}
		return []es.Event{ShippingAddressProvided{Address: addr}}, nil
	})
}

func (s *Service) SelectShippingMethod(ctx context.Context, checkoutID uuid.UUID, method string) (Checkout, error) {
	const command = "SelectShippingMethod"
	cost, ok := shippingRates[method]
	if !ok {
		return Checkout{}, es.Reject(command, "unknown shipping method "+method)
	}
	return s.handler.Execute(ctx, checkoutID, command, func(c Checkout) ([]es.Event, error) {
		if err := requireInProgress(command, c); err != nil {
			return nil, err
		}
		return []es.Event{ShippingMethodSelected{Method: method, Cost: cost}}, nil
	})
}

func (s *Service) ProvidePaymentMethod(ctx context.Context, checkoutID uuid.UUID, paymentToken string) (Checkout, error) {
	const command = "ProvidePaymentMethod"
	if paymentToken == "" {
		return Checkout{}, es.Reject(command, "payment token required")
	}
	return s.handler.Execute(ctx, checkoutID, command, func(c Checkout) ([]es.Event, error) {
		if err := requireInProgress(command, c); err != nil {
			return nil, err
		}
		return []es.Event{PaymentMethodProvided{PaymentToken: paymentToken}}, nil
	})
}

// CompleteCheckout places the order. The order id is derived from the
// checkout id, and the integration messages leave through the outbox in
// the same transaction, so the order is placed exactly once no matter how
// often the command is retried.
func (s *Service) CompleteCheckout(ctx context.Context, checkoutID uuid.UUID) (Checkout, error) {
	const command = "CompleteCheckout"
	return s.handler.Execute(ctx, checkoutID, command, func(c Checkout) ([]es.Event, error) {
		if err := requireInProgress(command, c); err != nil {
			return nil, err
		}
		if !c.HasAddress {
			return nil, es.Reject(command, "shipping address not provided")
		}
		if c.Method == "" {
			return nil, es.Reject(command, "shipping method not selected")
		}
		if c.PaymentToken == "" {
			return nil, es.Reject(command, "payment method not provided")
		}

		subtotal := c.Subtotal()
		orderID := messages.DeriveStreamID(messages.NamespaceOrder, c.ID)
		return []es.Event{CheckoutCompleted{
			OrderID:      orderID.String(),
			CheckoutID:   c.ID,
			CustomerID:   c.CustomerID,
			Lines:        c.Lines,
			Subtotal:     subtotal,
			ShippingCost: c.ShippingCost,
			Total:        subtotal + c.ShippingCost,
			Currency:     c.Currency,
			PaymentToken: c.PaymentToken,
		}}, nil
	})
}

func requireInProgress(command string, c Checkout) error {
	switch c.Status {
	case StatusInProgress:
		return nil
	case StatusCompleted:
		return es.Reject(command, "checkout already completed")
	default:
		return es.Reject(command, "checkout not started")
	}
}
