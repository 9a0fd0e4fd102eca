package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/services/cart-service/internal/catalog"
)

// Service exposes the cart command surface. Every command is the same
// cycle: load the stream, validate against the fold, append new facts.
type Service struct {
	handler *es.Handler[Cart]
	catalog catalog.Client
	logger  *slog.Logger
}

func NewService(store es.EventStore, cat catalog.Client, logger *slog.Logger) *Service {
	return &Service{
		handler: es.NewHandler(store, Aggregate(), "cart-service", logger),
		catalog: cat,
		logger:  logger,
	}
}

func (s *Service) Get(ctx context.Context, cartID uuid.UUID) (Cart, error) {
	state, _, err := s.handler.Load(ctx, cartID)
	return state, err
}

// InitializeCart creates an empty active cart. Creating the same cart id
// twice is a rejection, not a transient fault.
func (s *Service) InitializeCart(ctx context.Context, cartID uuid.UUID, customerID, currency string) (Cart, error) {
	if customerID == "" {
		return Cart{}, es.Reject("InitializeCart", "customer id required")
	}
	if currency == "" {
		currency = "USD"
	}

	state, err := s.handler.Start(ctx, cartID, "InitializeCart", func(c Cart) ([]es.Event, error) {
		return []es.Event{CartInitialized{
			CartID:     cartID.String(),
			CustomerID: customerID,
			Currency:   currency,
		}}, nil
	})
	if errors.Is(err, es.ErrAlreadyExists) {
		return state, es.Reject("InitializeCart", "cart already exists")
	}
	return state, err
}

// AddItemToCart validates the SKU against the catalog before appending.
// The price is snapshotted from the catalog at add time.
func (s *Service) AddItemToCart(ctx context.Context, cartID uuid.UUID, sku string, quantity int) (Cart, error) {
	const command = "AddItemToCart"
	if sku == "" {
		return Cart{}, es.Reject(command, "sku required")
	}
	if quantity <= 0 {
		return Cart{}, es.Reject(command, "quantity must be positive")
	}

	product, err := s.catalog.Product(ctx, sku)
	if errors.Is(err, catalog.ErrNotFound) {
		return Cart{}, es.Reject(command, fmt.Sprintf("unknown product %s", sku))
	}
	if err != nil {
		return Cart{}, es.External("catalog", err, true)
	}
	if product.Discontinued {
		return Cart{}, es.Reject(command, fmt.Sprintf("product %s is discontinued", sku))
	}

	return s.handler.Execute(ctx, cartID, command, func(c Cart) ([]es.Event, error) {
		if err := requireActive(command, c); err != nil {
			return nil, err
		}
		return []es.Event{CartItemAdded{
			SKU:       sku,
			Quantity:  quantity,
			UnitPrice: product.Price,
		}}, nil
	})
}

func (s *Service) RemoveItemFromCart(ctx context.Context, cartID uuid.UUID, sku string) (Cart, error) {
	const command = "RemoveItemFromCart"
	return s.handler.Execute(ctx, cartID, command, func(c Cart) ([]es.Event, error) {
		if err := requireActive(command, c); err != nil {
			return nil, err
		}
		if c.lineIndex(sku) < 0 {
			return nil, es.Reject(command, fmt.Sprintf("sku %s not in cart", sku))
		}
		return []es.Event{CartItemRemoved{SKU: sku}}, nil
	})
}

func (s *Service) ChangeItemQuantity(ctx context.Context, cartID uuid.UUID, sku string, quantity int) (Cart, error) {
	const command = "ChangeItemQuantity"
	if quantity <= 0 {
		return Cart{}, es.Reject(command, "quantity must be positive")
	}
	return s.handler.Execute(ctx, cartID, command, func(c Cart) ([]es.Event, error) {
		if err := requireActive(command, c); err != nil {
			return nil, err
		}
		i := c.lineIndex(sku)
		if i < 0 {
			return nil, es.Reject(command, fmt.Sprintf("sku %s not in cart", sku))
		}
		if c.Lines[i].Quantity == quantity {
			return nil, nil
		}
		return []es.Event{CartItemQuantityChanged{SKU: sku, Quantity: quantity}}, nil
	})
}

// ClearCart retires the cart. Cleared is terminal: the customer starts
// over with a fresh cart rather than refilling this one.
func (s *Service) ClearCart(ctx context.Context, cartID uuid.UUID) (Cart, error) {
	const command = "ClearCart"
	return s.handler.Execute(ctx, cartID, command, func(c Cart) ([]es.Event, error) {
		if c.Status == StatusCleared {
			return nil, nil
		}
		if err := requireActive(command, c); err != nil {
			return nil, err
		}
		return []es.Event{CartCleared{}}, nil
	})
}

func (s *Service) AbandonCart(ctx context.Context, cartID uuid.UUID) (Cart, error) {
	const command = "AbandonCart"
	return s.handler.Execute(ctx, cartID, command, func(c Cart) ([]es.Event, error) {
		if c.Status == StatusAbandoned {
			return nil, nil
		}
		if err := requireActive(command, c); err != nil {
			return nil, err
		}
		return []es.Event{CartAbandoned{}}, nil
	})
}

// InitiateCheckout freezes the cart and emits the checkout hand-off. The
// checkout id is derived from the cart id, so a redelivered command
// converges on the same downstream stream.
func (s *Service) InitiateCheckout(ctx context.Context, cartID uuid.UUID) (Cart, error) {
	const command = "InitiateCheckout"
	return s.handler.Execute(ctx, cartID, command, func(c Cart) ([]es.Event, error) {
		if err := requireActive(command, c); err != nil {
			return nil, err
		}
		if len(c.Lines) == 0 {
			return nil, es.Reject(command, "cart is empty")
		}

		lines := make([]messages.Line, 0, len(c.Lines))
		for _, l := range c.Lines {
			lines = append(lines, messages.Line{SKU: l.SKU, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
		}
		checkoutID := messages.DeriveStreamID(messages.NamespaceCheckout, c.ID)
		return []es.Event{CartCheckedOut{
			CheckoutID: checkoutID.String(),
			CartID:     c.ID,
			CustomerID: c.CustomerID,
			Lines:      lines,
			Currency:   c.Currency,
		}}, nil
	})
}

func requireActive(command string, c Cart) error {
	switch c.Status {
	case StatusActive:
		return nil
	case StatusCheckedOut:
		return es.Reject(command, "cart already checked out")
	case StatusCleared:
		return es.Reject(command, "cart was cleared")
	case StatusAbandoned:
		return es.Reject(command, "cart was abandoned")
	default:
		return es.Reject(command, "cart not initialized")
	}
}
