// Package router spawns shipments from fulfillment requests. The shipment
// id is derived from the order id, so a duplicated request converges on
// one stream.
package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/services/fulfillment-service/internal/shipment"
)

var Topics = []string{
	messages.TypeFulfillmentRequested,
}

type Router struct {
	svc    *shipment.Service
	logger *slog.Logger
}

func New(svc *shipment.Service, logger *slog.Logger) *Router {
	return &Router{svc: svc, logger: logger}
}

func (r *Router) Handle(ctx context.Context, msg kafka.Message) error {
	env, err := messages.DecodeEnvelope(msg.Value)
	if err != nil {
		return err
	}

	switch env.Type {
	case messages.TypeFulfillmentRequested:
		var m messages.FulfillmentRequested
		if err := env.DecodePayload(&m); err != nil {
			return err
		}
		return r.onFulfillmentRequested(ctx, m)
	default:
		r.logger.Warn("unexpected message type on fulfillment topics", "type", env.Type)
		return nil
	}
}

func (r *Router) onFulfillmentRequested(ctx context.Context, m messages.FulfillmentRequested) error {
	shipmentID := messages.DeriveStreamID(messages.NamespaceShipment, m.OrderID)
	_, err := r.svc.RequestFulfillment(ctx, shipmentID, m.OrderID, m.CustomerID, m.Lines)
	if errors.Is(err, es.ErrAlreadyExists) {
		return nil
	}
	return err
}
