package push

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikshafer/crittersupply/libs/messages"
)

type recordingPusher struct {
	customerID string
	payload    []byte
	calls      int
}

func (p *recordingPusher) Push(_ context.Context, customerID string, payload []byte) error {
	p.customerID = customerID
	p.payload = payload
	p.calls++
	return nil
}

func wireMessage(t *testing.T, msg messages.Message) kafka.Message {
	t.Helper()
	env, err := messages.Wrap("test", "", msg)
	require.NoError(t, err)
	body, err := env.Encode()
	require.NoError(t, err)
	return kafka.Message{Topic: msg.MessageType(), Value: body}
}

func TestPushRoutesToCustomerChannel(t *testing.T) {
	pusher := &recordingPusher{}
	h := NewHandler(pusher, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := h.Handle(context.Background(), wireMessage(t, messages.ShipmentDelivered{
		ShipmentID: "ship-1",
		OrderID:    "order-1",
		CustomerID: "cust-8",
	}))
	require.NoError(t, err)

	assert.Equal(t, "cust-8", pusher.customerID)

	var note struct {
		Type    string `json:"type"`
		Payload struct {
			OrderID string `json:"order_id"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(pusher.payload, &note))
	assert.Equal(t, messages.TypeShipmentDelivered, note.Type)
	assert.Equal(t, "order-1", note.Payload.OrderID)
}

func TestMessageWithoutCustomerIsSkipped(t *testing.T) {
	pusher := &recordingPusher{}
	h := NewHandler(pusher, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := h.Handle(context.Background(), wireMessage(t, messages.ReservationCommitted{
		ReservationID: "res-1",
		OrderID:       "order-1",
	}))
	require.NoError(t, err)
	assert.Zero(t, pusher.calls)
}
