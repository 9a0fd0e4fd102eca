// Package router is the checkout boundary's choreography: it reacts to
// integration messages from the cart and payment boundaries. All effects
// behind it are idempotent, so redelivery is harmless.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/services/checkout-service/internal/checkout"
)

// Topics lists everything this boundary subscribes to.
var Topics = []string{
	messages.TypeCheckoutInitiated,
	messages.TypePaymentCaptured,
	messages.TypePaymentFailed,
}

// Publisher stages reaction messages; outbox.Enqueuer in production.
type Publisher interface {
	Publish(ctx context.Context, causationID string, msgs ...messages.Message) error
}

type Router struct {
	svc      *checkout.Service
	enqueuer Publisher
	logger   *slog.Logger
}

func New(svc *checkout.Service, enqueuer Publisher, logger *slog.Logger) *Router {
	return &Router{svc: svc, enqueuer: enqueuer, logger: logger}
}

func (r *Router) Handle(ctx context.Context, msg kafka.Message) error {
	env, err := messages.DecodeEnvelope(msg.Value)
	if err != nil {
		return err
	}

	switch env.Type {
	case messages.TypeCheckoutInitiated:
		var m messages.CheckoutInitiated
		if err := env.DecodePayload(&m); err != nil {
			return err
		}
		return r.onCheckoutInitiated(ctx, m)
	case messages.TypePaymentCaptured:
		var m messages.PaymentCaptured
		if err := env.DecodePayload(&m); err != nil {
			return err
		}
		return r.onPaymentCaptured(ctx, env.ID, m)
	case messages.TypePaymentFailed:
		var m messages.PaymentFailed
		if err := env.DecodePayload(&m); err != nil {
			return err
		}
		return r.onPaymentFailed(ctx, env.ID, m)
	default:
		r.logger.Warn("unexpected message type on checkout topics", "type", env.Type)
		return nil
	}
}

func (r *Router) onCheckoutInitiated(ctx context.Context, m messages.CheckoutInitiated) error {
	checkoutID, err := uuid.Parse(m.CheckoutID)
	if err != nil {
		return fmt.Errorf("checkout id: %w", err)
	}
	_, err = r.svc.StartCheckout(ctx, checkoutID, m.CartID, m.CustomerID, m.Lines, m.Currency)
	if errors.Is(err, es.ErrAlreadyExists) {
		return nil
	}
	return err
}

// onPaymentCaptured fans the paid order out to fulfillment and inventory.
// The checkout stream is the source of the order lines; a not-yet-visible
// checkout (out-of-order delivery) fails the dispatch and is retried.
func (r *Router) onPaymentCaptured(ctx context.Context, causationID string, m messages.PaymentCaptured) error {
	checkoutID, err := uuid.Parse(m.CheckoutID)
	if err != nil {
		return fmt.Errorf("checkout id: %w", err)
	}
	state, err := r.svc.Get(ctx, checkoutID)
	if err != nil {
		return err
	}

	return r.enqueuer.Publish(ctx, causationID,
		messages.FulfillmentRequested{
			OrderID:    m.OrderID,
			CustomerID: state.CustomerID,
			Lines:      state.Lines,
		},
		messages.ReservationCommitRequested{OrderID: m.OrderID},
	)
}

func (r *Router) onPaymentFailed(ctx context.Context, causationID string, m messages.PaymentFailed) error {
	return r.enqueuer.Publish(ctx, causationID,
		messages.ReservationReleaseRequested{
			OrderID: m.OrderID,
			Reason:  "payment failed: " + m.Reason,
		},
	)
}
