package checkout

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/eventstore"
	"github.com/erikshafer/crittersupply/libs/messages"
)

var testLines = []messages.Line{
	{SKU: "DOG-FOOD-10KG", Quantity: 2, UnitPrice: 1999},
	{SKU: "CAT-TREE-XL", Quantity: 1, UnitPrice: 8999},
}

var testAddress = Address{
	Name:       "Sam Okafor",
	Street:     "12 Finch Ave",
	City:       "Columbus",
	Region:     "OH",
	PostalCode: "43004",
	Country:    "US",
}

func newTestService(store es.EventStore) *Service {
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func startedCheckout(t *testing.T, svc *Service) uuid.UUID {
	t.Helper()
	checkoutID := uuid.New()
	_, err := svc.StartCheckout(context.Background(), checkoutID, uuid.NewString(), "cust-3", testLines, "USD")
	require.NoError(t, err)
	return checkoutID
}

func TestStartCheckoutDuplicateAbsorbable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(eventstore.NewMemoryStore())
	checkoutID := uuid.New()

	_, err := svc.StartCheckout(ctx, checkoutID, "cart-1", "cust-3", testLines, "USD")
	require.NoError(t, err)

	_, err = svc.StartCheckout(ctx, checkoutID, "cart-1", "cust-3", testLines, "USD")
	assert.ErrorIs(t, err, es.ErrAlreadyExists)
}

func TestCompleteRequiresAllThreeInputs(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(eventstore.NewMemoryStore())
	checkoutID := startedCheckout(t, svc)

	_, err := svc.CompleteCheckout(ctx, checkoutID)
	assert.True(t, es.IsRejection(err), "no inputs provided")

	_, err = svc.ProvideShippingAddress(ctx, checkoutID, testAddress)
	require.NoError(t, err)
	_, err = svc.CompleteCheckout(ctx, checkoutID)
	assert.True(t, es.IsRejection(err), "shipping method missing")

	_, err = svc.SelectShippingMethod(ctx, checkoutID, "standard")
	require.NoError(t, err)
	_, err = svc.CompleteCheckout(ctx, checkoutID)
	assert.True(t, es.IsRejection(err), "payment method missing")

	_, err = svc.ProvidePaymentMethod(ctx, checkoutID, "tok_visa")
	require.NoError(t, err)
	state, err := svc.CompleteCheckout(ctx, checkoutID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, state.Status)
}

func TestCompleteComputesTotal(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	svc := newTestService(store)
	checkoutID := startedCheckout(t, svc)

	_, err := svc.ProvideShippingAddress(ctx, checkoutID, testAddress)
	require.NoError(t, err)
	_, err = svc.SelectShippingMethod(ctx, checkoutID, "standard")
	require.NoError(t, err)
	_, err = svc.ProvidePaymentMethod(ctx, checkoutID, "tok_visa")
	require.NoError(t, err)

	state, err := svc.CompleteCheckout(ctx, checkoutID)
	require.NoError(t, err)

	// 2*19.99 + 89.99 = 129.97 subtotal, + 5.99 standard shipping.
	assert.Equal(t, int64(12997), state.Subtotal())
	assert.Equal(t, int64(599), state.ShippingCost)

	entries := store.StagedEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, messages.TypeCheckoutCompleted, entries[0].MessageType)
	assert.Equal(t, messages.TypeOrderPlaced, entries[1].MessageType)

	env, err := messages.DecodeEnvelope(entries[1].Payload)
	require.NoError(t, err)
	var placed messages.OrderPlaced
	require.NoError(t, env.DecodePayload(&placed))
	assert.Equal(t, int64(12997), placed.Subtotal)
	assert.Equal(t, int64(599), placed.ShippingCost)
	assert.Equal(t, int64(13596), placed.Total)
	assert.Equal(t, "tok_visa", placed.PaymentToken)
	assert.Equal(t, testLines, placed.Lines)

	wantOrderID := messages.DeriveStreamID(messages.NamespaceOrder, checkoutID.String())
	assert.Equal(t, wantOrderID.String(), placed.OrderID)
}

func TestCompletedCheckoutIsTerminal(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(eventstore.NewMemoryStore())
	checkoutID := startedCheckout(t, svc)

	_, err := svc.ProvideShippingAddress(ctx, checkoutID, testAddress)
	require.NoError(t, err)
	_, err = svc.SelectShippingMethod(ctx, checkoutID, "express")
	require.NoError(t, err)
	_, err = svc.ProvidePaymentMethod(ctx, checkoutID, "tok_visa")
	require.NoError(t, err)
	_, err = svc.CompleteCheckout(ctx, checkoutID)
	require.NoError(t, err)

	_, err = svc.CompleteCheckout(ctx, checkoutID)
	assert.True(t, es.IsRejection(err))
	_, err = svc.SelectShippingMethod(ctx, checkoutID, "standard")
	assert.True(t, es.IsRejection(err))
	_, err = svc.ProvideShippingAddress(ctx, checkoutID, testAddress)
	assert.True(t, es.IsRejection(err))
}

func TestUnknownShippingMethodRejected(t *testing.T) {
	svc := newTestService(eventstore.NewMemoryStore())
	checkoutID := startedCheckout(t, svc)

	_, err := svc.SelectShippingMethod(context.Background(), checkoutID, "teleport")
	assert.True(t, es.IsRejection(err))
}

func TestIncompleteAddressRejected(t *testing.T) {
	svc := newTestService(eventstore.NewMemoryStore())
	checkoutID := startedCheckout(t, svc)

	_, err := svc.ProvideShippingAddress(context.Background(), checkoutID, Address{Name: "Sam"})
	assert.True(t, es.IsRejection(err))
}
