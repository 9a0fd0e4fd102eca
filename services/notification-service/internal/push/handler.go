// Package push fans customer-facing integration messages out to the
// notification channel. It owns no aggregate; it is a pure consumer.
package push

import (
	"context"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"

	"github.com/erikshafer/crittersupply/libs/messages"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Topics lists every message a customer should hear about.
var Topics = []string{
	messages.TypeCheckoutCompleted,
	messages.TypePaymentCaptured,
	messages.TypePaymentFailed,
	messages.TypeShipmentDispatched,
	messages.TypeShipmentDelivered,
	messages.TypeShipmentDeliveryFailed,
}

// Pusher is the channel's client side; notify.Publisher in production.
type Pusher interface {
	Push(ctx context.Context, customerID string, payload []byte) error
}

type Handler struct {
	pusher Pusher
	logger *slog.Logger
}

func NewHandler(pusher Pusher, logger *slog.Logger) *Handler {
	return &Handler{pusher: pusher, logger: logger}
}

// notification is what subscribers receive: the message type names the
// occasion, the payload carries the boundary's own fields untouched.
type notification struct {
	Type       string              `json:"type"`
	OccurredAt time.Time           `json:"occurred_at"`
	Payload    jsoniter.RawMessage `json:"payload"`
}

func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	env, err := messages.DecodeEnvelope(msg.Value)
	if err != nil {
		return err
	}

	// Every customer-facing payload carries customer_id; a message
	// without one has nobody to notify.
	var recipient struct {
		CustomerID string `json:"customer_id"`
	}
	if err := env.DecodePayload(&recipient); err != nil {
		return err
	}
	if recipient.CustomerID == "" {
		h.logger.Warn("message without customer id, skipping", "type", env.Type)
		return nil
	}

	body, err := json.Marshal(notification{
		Type:       env.Type,
		OccurredAt: env.OccurredAt,
		Payload:    env.Payload,
	})
	if err != nil {
		return err
	}
	return h.pusher.Push(ctx, recipient.CustomerID, body)
}
