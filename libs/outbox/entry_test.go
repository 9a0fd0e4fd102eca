package outbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikshafer/crittersupply/libs/messages"
)

func TestEntryFromMessage(t *testing.T) {
	entry, err := EntryFromMessage("payment-service", "cause-9", "payment", "pay-1", messages.PaymentCaptured{
		PaymentID:  "pay-1",
		OrderID:    "order-1",
		CustomerID: "cust-1",
		Amount:     13596,
		Currency:   "USD",
	})
	require.NoError(t, err)

	assert.Equal(t, messages.TypePaymentCaptured, entry.MessageType, "topic equals the message type")
	assert.Equal(t, "order-1", entry.Key, "partition key is the correlation key")
	assert.Equal(t, "payment", entry.AggregateType)
	assert.Equal(t, "pay-1", entry.AggregateID)
	assert.NotEmpty(t, entry.MessageID)

	env, err := messages.DecodeEnvelope(entry.Payload)
	require.NoError(t, err)
	assert.Equal(t, entry.MessageID, env.ID)
	assert.Equal(t, "cause-9", env.CausationID)
	assert.Equal(t, "payment-service", env.Producer)

	var payload messages.PaymentCaptured
	require.NoError(t, env.DecodePayload(&payload))
	assert.Equal(t, int64(13596), payload.Amount)
}
