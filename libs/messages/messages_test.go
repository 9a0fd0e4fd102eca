package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := Wrap("cart-service", "cause-1", CheckoutInitiated{
		CheckoutID: "chk-1",
		CartID:     "cart-1",
		CustomerID: "cust-1",
		Currency:   "USD",
		Lines: []Line{
			{SKU: "CHEW-TOY", Quantity: 2, UnitPrice: 1999},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, TypeCheckoutInitiated, env.Type)
	assert.Equal(t, "cart-1", env.CorrelationID, "correlation key partitions the topic")
	assert.Equal(t, "cause-1", env.CausationID)
	assert.False(t, env.OccurredAt.IsZero())

	body, err := env.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(body)
	require.NoError(t, err)
	assert.Equal(t, env.ID, decoded.ID)

	var payload CheckoutInitiated
	require.NoError(t, decoded.DecodePayload(&payload))
	assert.Equal(t, "cart-1", payload.CartID)
	require.Len(t, payload.Lines, 1)
	assert.Equal(t, int64(1999), payload.Lines[0].UnitPrice)
}

// The catalog evolves additively; consumers on an older struct must not
// choke on fields they do not know.
func TestDecodeToleratesUnknownFields(t *testing.T) {
	body := []byte(`{
		"id": "m-1",
		"type": "crittersupply.ordering.order-placed.v1",
		"correlation_id": "order-1",
		"producer": "checkout-service",
		"occurred_at": "2026-08-30T10:00:00Z",
		"priority": "high",
		"payload": {"order_id": "order-1", "total": 13596, "gift_wrap": true}
	}`)

	env, err := DecodeEnvelope(body)
	require.NoError(t, err)

	var payload OrderPlaced
	require.NoError(t, env.DecodePayload(&payload))
	assert.Equal(t, "order-1", payload.OrderID)
	assert.Equal(t, int64(13596), payload.Total)
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	_, err := DecodeEnvelope([]byte("not json"))
	assert.Error(t, err)
}

func TestDeriveStreamIDIsDeterministic(t *testing.T) {
	a := DeriveStreamID(NamespaceOrder, "chk-1")
	b := DeriveStreamID(NamespaceOrder, "chk-1")
	assert.Equal(t, a, b, "redeliveries must converge on one stream")

	other := DeriveStreamID(NamespaceOrder, "chk-2")
	assert.NotEqual(t, a, other)
}

func TestDeriveStreamIDNamespacesDiverge(t *testing.T) {
	// The same order id seeds the payment, shipment and reservation
	// streams; the namespaces keep them from colliding.
	payment := DeriveStreamID(NamespacePayment, "order-1")
	shipment := DeriveStreamID(NamespaceShipment, "order-1")
	reservation := DeriveStreamID(NamespaceReservation, "order-1")

	assert.NotEqual(t, payment, shipment)
	assert.NotEqual(t, payment, reservation)
	assert.NotEqual(t, shipment, reservation)
}
