package shipment

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/eventstore"
	"github.com/erikshafer/crittersupply/libs/messages"
)

var testLines = []messages.Line{{SKU: "DOG-FOOD-10KG", Quantity: 2, UnitPrice: 1999}}

func newTestService(store es.EventStore) *Service {
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestShipmentLifecycle(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	svc := newTestService(store)
	shipmentID := uuid.New()

	_, err := svc.RequestFulfillment(ctx, shipmentID, "order-1", "cust-5", testLines)
	require.NoError(t, err)

	state, err := svc.AssignWarehouse(ctx, shipmentID, "columbus-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, state.Status)

	state, err = svc.DispatchShipment(ctx, shipmentID, "UPS", "1Z999")
	require.NoError(t, err)
	assert.Equal(t, StatusDispatched, state.Status)

	state, err = svc.ConfirmDelivery(ctx, shipmentID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, state.Status)

	entries := store.StagedEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, messages.TypeShipmentDispatched, entries[0].MessageType)
	assert.Equal(t, messages.TypeShipmentDelivered, entries[1].MessageType)
}

func TestDispatchRequiresAssignment(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(eventstore.NewMemoryStore())
	shipmentID := uuid.New()

	_, err := svc.RequestFulfillment(ctx, shipmentID, "order-1", "cust-5", testLines)
	require.NoError(t, err)

	_, err = svc.DispatchShipment(ctx, shipmentID, "UPS", "1Z999")
	assert.True(t, es.IsRejection(err))
}

func TestConfirmDeliveryIdempotent(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	svc := newTestService(store)
	shipmentID := uuid.New()

	_, err := svc.RequestFulfillment(ctx, shipmentID, "order-1", "cust-5", testLines)
	require.NoError(t, err)
	_, err = svc.AssignWarehouse(ctx, shipmentID, "columbus-1")
	require.NoError(t, err)
	_, err = svc.DispatchShipment(ctx, shipmentID, "UPS", "1Z999")
	require.NoError(t, err)

	_, err = svc.ConfirmDelivery(ctx, shipmentID, time.Now().UTC())
	require.NoError(t, err)
	versionAfterFirst := store.StreamVersion(shipmentID)

	state, err := svc.ConfirmDelivery(ctx, shipmentID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, state.Status)
	assert.Equal(t, versionAfterFirst, store.StreamVersion(shipmentID))
}

func TestDeliveryFailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	svc := newTestService(store)
	shipmentID := uuid.New()

	_, err := svc.RequestFulfillment(ctx, shipmentID, "order-1", "cust-5", testLines)
	require.NoError(t, err)
	_, err = svc.AssignWarehouse(ctx, shipmentID, "columbus-1")
	require.NoError(t, err)
	_, err = svc.DispatchShipment(ctx, shipmentID, "UPS", "1Z999")
	require.NoError(t, err)

	state, err := svc.RecordDeliveryFailure(ctx, shipmentID, "address unreachable")
	require.NoError(t, err)
	assert.Equal(t, StatusDeliveryFailed, state.Status)

	_, err = svc.ConfirmDelivery(ctx, shipmentID, time.Now().UTC())
	assert.True(t, es.IsRejection(err))
	_, err = svc.DispatchShipment(ctx, shipmentID, "UPS", "1Z000")
	assert.True(t, es.IsRejection(err))
}

// A duplicated fulfillment request derives the same shipment id and the
// second creation collapses into the existing stream.
func TestDuplicateFulfillmentRequestConvergesOnOneStream(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	svc := newTestService(store)

	orderID := uuid.NewString()
	shipmentID := messages.DeriveStreamID(messages.NamespaceShipment, orderID)

	_, err := svc.RequestFulfillment(ctx, shipmentID, orderID, "cust-5", testLines)
	require.NoError(t, err)

	_, err = svc.RequestFulfillment(ctx, shipmentID, orderID, "cust-5", testLines)
	assert.ErrorIs(t, err, es.ErrAlreadyExists)
	assert.Equal(t, uint64(1), store.StreamVersion(shipmentID))

	// Same order id always derives the same shipment id.
	assert.Equal(t, shipmentID, messages.DeriveStreamID(messages.NamespaceShipment, orderID))
}
