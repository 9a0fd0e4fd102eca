// Package router reacts to placed orders by spawning and capturing the
// payment. The payment id is derived from the order id, so a redelivered
// OrderPlaced converges on the same stream.
package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/services/payment-service/internal/payment"
)

var Topics = []string{
	messages.TypeOrderPlaced,
}

type Router struct {
	svc    *payment.Service
	logger *slog.Logger
}

func New(svc *payment.Service, logger *slog.Logger) *Router {
	return &Router{svc: svc, logger: logger}
}

func (r *Router) Handle(ctx context.Context, msg kafka.Message) error {
	env, err := messages.DecodeEnvelope(msg.Value)
	if err != nil {
		return err
	}

	switch env.Type {
	case messages.TypeOrderPlaced:
		var m messages.OrderPlaced
		if err := env.DecodePayload(&m); err != nil {
			return err
		}
		return r.onOrderPlaced(ctx, m)
	default:
		r.logger.Warn("unexpected message type on payment topics", "type", env.Type)
		return nil
	}
}

func (r *Router) onOrderPlaced(ctx context.Context, m messages.OrderPlaced) error {
	paymentID := messages.DeriveStreamID(messages.NamespacePayment, m.OrderID)

	_, err := r.svc.InitiatePayment(ctx, paymentID, m.OrderID, m.CheckoutID, m.CustomerID, m.Total, m.Currency, m.PaymentToken)
	if err != nil && !errors.Is(err, es.ErrAlreadyExists) {
		return err
	}

	// Capture is idempotent: a settled payment is left untouched.
	_, err = r.svc.RequestPaymentCapture(ctx, paymentID)
	return err
}
